package model

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackNote is append-only operator feedback attached to a clinic.
type FeedbackNote struct {
	ID         uuid.UUID `db:"id" json:"id"`
	HospitalID uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Step       int       `db:"step" json:"step"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
