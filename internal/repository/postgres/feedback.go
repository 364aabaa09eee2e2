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

type feedbackRepository struct {
	BaseRepository
}

func NewFeedbackRepository(db *sqlx.DB) repository.FeedbackRepository {
	return &feedbackRepository{NewBaseRepository(db)}
}

func (r *feedbackRepository) Create(ctx context.Context, note *model.FeedbackNote) error {
	query := `
		INSERT INTO hospital_feedback (id, hospital_id, step, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	note.CreatedAt = time.Now()

	if _, err := r.db.ExecContext(ctx, query,
		note.ID, note.HospitalID, note.Step, note.Content, note.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.FeedbackNote, error) {
	query := `
		SELECT id, hospital_id, step, content, created_at
		FROM hospital_feedback
		WHERE hospital_id = $1
		ORDER BY created_at DESC
	`
	var notes []*model.FeedbackNote
	if err := r.db.SelectContext(ctx, &notes, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return notes, nil
}
