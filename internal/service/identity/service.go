package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
)

// Service maps an external identity to the operator row and its clinic.
type Service struct {
	repo   repository.OperatorRepository
	logger *logger.Logger
}

func NewService(repo repository.OperatorRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ResolveOperator returns the operator for externalUserID, creating it on
// first contact with no clinic link and no credential hash.
func (s *Service) ResolveOperator(ctx context.Context, externalUserID, email string) (*model.Operator, error) {
	if externalUserID == "" {
		return nil, apperrors.Validation("external user id is required")
	}

	op, err := s.repo.GetByExternalID(ctx, externalUserID)
	if err == nil {
		return op, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.StoreUnavailable(err)
	}

	op = &model.Operator{
		Base:             model.Base{ID: uuid.New()},
		ExternalUserID:   externalUserID,
		Email:            email,
		IsActiveHospital: false,
	}
	if err := s.repo.Create(ctx, op); err != nil {
		return nil, apperrors.FromStore(err)
	}

	s.logger.Info("created operator on first contact",
		"operator_id", op.ID.String(),
		"external_user_id", externalUserID)
	return op, nil
}

// LinkClinic attaches a freshly created clinic to its operator.
func (s *Service) LinkClinic(ctx context.Context, operatorID, clinicID uuid.UUID) error {
	if err := s.repo.LinkHospital(ctx, operatorID, clinicID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("operator", err)
		}
		return apperrors.FromStore(err)
	}
	return nil
}
