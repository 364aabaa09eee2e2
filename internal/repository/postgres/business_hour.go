package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

type businessHourRepository struct {
	BaseRepository
}

func NewBusinessHourRepository(db *sqlx.DB) repository.BusinessHourRepository {
	return &businessHourRepository{NewBaseRepository(db)}
}

func (r *businessHourRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.BusinessHour, error) {
	query := `
		SELECT id, hospital_id, day_of_week, open_time, close_time, status
		FROM hospital_business_hours
		WHERE hospital_id = $1
		ORDER BY day_of_week
	`
	var hours []*model.BusinessHour
	if err := r.db.SelectContext(ctx, &hours, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list business hours: %w", err)
	}
	return hours, nil
}

// Create writes the whole week in a single transaction.
func (r *businessHourRepository) Create(ctx context.Context, hours []*model.BusinessHour) error {
	query := `
		INSERT INTO hospital_business_hours (
			id, hospital_id, day_of_week, open_time, close_time, status
		) VALUES (:id, :hospital_id, :day_of_week, :open_time, :close_time, :status)
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, h := range hours {
			if h.ID == uuid.Nil {
				h.ID = uuid.New()
			}
			if _, err := tx.NamedExecContext(ctx, query, h); err != nil {
				return fmt.Errorf("failed to create business hour for day %d: %w", h.DayOfWeek, err)
			}
		}
		return nil
	})
}

func (r *businessHourRepository) Update(ctx context.Context, hour *model.BusinessHour) error {
	query := `
		UPDATE hospital_business_hours
		SET open_time = $1, close_time = $2, status = $3
		WHERE hospital_id = $4 AND day_of_week = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		hour.OpenTime,
		hour.CloseTime,
		hour.Status,
		hour.HospitalID,
		hour.DayOfWeek,
	)
	if err != nil {
		return fmt.Errorf("failed to update business hour: %w", err)
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
