package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/repository"
	"github.com/jwalitptl/clinic-console/internal/service/media"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
)

// Releaser drops a pending compensation once its effect is owned by a
// persisted row.
type Releaser interface {
	Release(key string)
}

type Reconciler struct {
	doctors repository.DoctorRepository
	media   *media.Manager
	logger  *logger.Logger
}

func NewReconciler(doctors repository.DoctorRepository, media *media.Manager, logger *logger.Logger) *Reconciler {
	return &Reconciler{doctors: doctors, media: media, logger: logger}
}

// Plan loads the persisted staff of a clinic and plans against desired.
func (r *Reconciler) Plan(ctx context.Context, hospitalID uuid.UUID, desired []Desired) (Plan, error) {
	existing, err := r.doctors.ListByHospital(ctx, hospitalID)
	if err != nil {
		return Plan{}, apperrors.FromStore(fmt.Errorf("list doctors: %w", err))
	}
	return BuildPlan(hospitalID, existing, desired)
}

// Apply writes plan. Inserts and updates run first in input order so a
// failure happens before anything is removed. Each written row releases the
// compensation keyed by its portrait URL. Row deletes tolerate rows that are
// already gone, and portrait deletes are best effort.
func (r *Reconciler) Apply(ctx context.Context, hospitalID uuid.UUID, plan Plan, saga Releaser) error {
	for _, d := range plan.ToInsert {
		d.HospitalID = hospitalID
		d.ID = uuid.New()
		if err := r.doctors.Create(ctx, d); err != nil {
			return apperrors.FromStore(fmt.Errorf("insert doctor %q: %w", d.Name, err))
		}
		saga.Release(d.PortraitURL)
	}

	for _, d := range plan.ToUpdate {
		d.HospitalID = hospitalID
		if err := r.doctors.Update(ctx, d); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.Conflict(fmt.Errorf("doctor %s was removed in another session", d.ID))
			}
			return apperrors.FromStore(fmt.Errorf("update doctor %s: %w", d.ID, err))
		}
		saga.Release(d.PortraitURL)
	}

	for _, d := range plan.ToDelete {
		if err := r.doctors.Delete(ctx, hospitalID, d.ID); err != nil {
			return apperrors.FromStore(fmt.Errorf("delete doctor %s: %w", d.ID, err))
		}
	}

	if len(plan.PortraitsToDelete) > 0 {
		removed := r.media.DeleteAssets(ctx, plan.PortraitsToDelete)
		r.logger.Debug("removed replaced portraits",
			"clinic_id", hospitalID.String(),
			"requested", len(plan.PortraitsToDelete),
			"removed", removed)
	}
	return nil
}
