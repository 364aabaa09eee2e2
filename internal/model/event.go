package model

import (
	"time"

	"github.com/google/uuid"
)

// Channels published on the message broker
const (
	EventStepCommitted   = "clinic.step.committed"
	EventFeedbackCreated = "clinic.feedback.created"
)

type StepCommittedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Step      int       `json:"step"`
	At        time.Time `json:"at"`
}

type FeedbackCreatedEvent struct {
	FeedbackID uuid.UUID `json:"feedback_id"`
	ClinicID   uuid.UUID `json:"clinic_id"`
	ClinicName string    `json:"clinic_name"`
	Step       int       `json:"step"`
	Content    string    `json:"content"`
	At         time.Time `json:"at"`
}
