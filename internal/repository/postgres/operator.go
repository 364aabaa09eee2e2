package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

type operatorRepository struct {
	BaseRepository
}

func NewOperatorRepository(db *sqlx.DB) repository.OperatorRepository {
	return &operatorRepository{NewBaseRepository(db)}
}

func (r *operatorRepository) GetByExternalID(ctx context.Context, externalUserID string) (*model.Operator, error) {
	query := `
		SELECT id, external_user_id, email, hospital_id, is_active_hospital,
			password_hash, created_at, updated_at
		FROM admins
		WHERE external_user_id = $1
	`
	var operator model.Operator
	if err := r.db.GetContext(ctx, &operator, query, externalUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

func (r *operatorRepository) Create(ctx context.Context, operator *model.Operator) error {
	query := `
		INSERT INTO admins (
			id, external_user_id, email, hospital_id, is_active_hospital,
			password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}
	operator.CreatedAt = time.Now()
	operator.UpdatedAt = operator.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		operator.ID,
		operator.ExternalUserID,
		operator.Email,
		operator.HospitalID,
		operator.IsActiveHospital,
		operator.PasswordHash,
		operator.CreatedAt,
		operator.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

func (r *operatorRepository) LinkHospital(ctx context.Context, operatorID, hospitalID uuid.UUID) error {
	query := `
		UPDATE admins
		SET hospital_id = $1, is_active_hospital = TRUE, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, hospitalID, time.Now(), operatorID)
	if err != nil {
		return fmt.Errorf("failed to link hospital: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
