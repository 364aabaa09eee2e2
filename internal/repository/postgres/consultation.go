package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(db *sqlx.DB) repository.ConsultationRepository {
	return &consultationRepository{NewBaseRepository(db)}
}

func (r *consultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filters.HospitalID != uuid.Nil {
		args = append(args, filters.HospitalID)
		conditions = append(conditions, fmt.Sprintf("hospital_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM consultations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count consultations: %w", err)
	}

	query := `
		SELECT id, hospital_id, patient_name, contact, treatment_summary, message,
			status, created_at
		FROM consultations` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Limit(), filters.Offset())

	var consultations []*model.Consultation
	if err := r.db.SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, total, nil
}
