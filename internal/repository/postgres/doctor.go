package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func (r *doctorRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Doctor, error) {
	query := `
		SELECT id, hospital_id, name, bio, portrait_url, is_chief, display_order,
			created_at, updated_at
		FROM hospital_doctors
		WHERE hospital_id = $1
		ORDER BY display_order, created_at
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO hospital_doctors (
			id, hospital_id, name, bio, portrait_url, is_chief, display_order,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = doctor.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.HospitalID,
		doctor.Name,
		doctor.Bio,
		doctor.PortraitURL,
		doctor.IsChief,
		doctor.DisplayOrder,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE hospital_doctors
		SET name = $1, bio = $2, portrait_url = $3, is_chief = $4,
			display_order = $5, updated_at = $6
		WHERE id = $7 AND hospital_id = $8
	`
	doctor.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Bio,
		doctor.PortraitURL,
		doctor.IsChief,
		doctor.DisplayOrder,
		doctor.UpdatedAt,
		doctor.ID,
		doctor.HospitalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
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

// Delete is scoped to the hospital so an id from another clinic is a no-op.
func (r *doctorRepository) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	query := `DELETE FROM hospital_doctors WHERE id = $1 AND hospital_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, hospitalID); err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return nil
}
