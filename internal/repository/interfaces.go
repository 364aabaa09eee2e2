package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a versioned update matched no row.
	ErrVersionConflict = errors.New("version conflict")
)

// All repository interfaces in one file
type (
	OperatorRepository interface {
		GetByExternalID(ctx context.Context, externalUserID string) (*model.Operator, error)
		Create(ctx context.Context, operator *model.Operator) error
		LinkHospital(ctx context.Context, operatorID, hospitalID uuid.UUID) error
	}

	// ClinicRepository persists the clinic profile and its details row.
	ClinicRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicProfile, error)
		GetDetails(ctx context.Context, hospitalID uuid.UUID) (*model.ClinicDetails, error)
		// Create inserts the parent row and fills LegacyID and Version.
		Create(ctx context.Context, clinic *model.ClinicProfile) error
		CreateDetails(ctx context.Context, details *model.ClinicDetails) error
		UpdateBasicInfo(ctx context.Context, clinic *model.ClinicProfile) error
		UpdateAddress(ctx context.Context, clinic *model.ClinicProfile) error
		UpdateMedia(ctx context.Context, clinic *model.ClinicProfile) error
		UpdateDetails(ctx context.Context, details *model.ClinicDetails) error
	}

	DoctorRepository interface {
		ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Doctor, error)
		Create(ctx context.Context, doctor *model.Doctor) error
		Update(ctx context.Context, doctor *model.Doctor) error
		// Delete tolerates rows that are already gone.
		Delete(ctx context.Context, hospitalID, id uuid.UUID) error
	}

	BusinessHourRepository interface {
		ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.BusinessHour, error)
		Create(ctx context.Context, hours []*model.BusinessHour) error
		Update(ctx context.Context, hour *model.BusinessHour) error
	}

	TreatmentRepository interface {
		FindByCodes(ctx context.Context, codes []int) ([]*model.Treatment, error)
		ListOfferings(ctx context.Context, hospitalID uuid.UUID) ([]*model.TreatmentOffering, error)
		// ReplaceOfferings swaps the clinic's offerings in one transaction.
		ReplaceOfferings(ctx context.Context, hospitalID uuid.UUID, offerings []*model.TreatmentOffering) error
	}

	FeedbackRepository interface {
		Create(ctx context.Context, note *model.FeedbackNote) error
		ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.FeedbackNote, error)
	}

	ConsultationRepository interface {
		List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, int, error)
	}
)
