package model

import (
	"time"

	"github.com/google/uuid"
)

type Consultation struct {
	ID               uuid.UUID `db:"id" json:"id"`
	HospitalID       uuid.UUID `db:"hospital_id" json:"hospital_id"`
	PatientName      string    `db:"patient_name" json:"patient_name"`
	Contact          string    `db:"contact" json:"contact"`
	TreatmentSummary string    `db:"treatment_summary" json:"treatment_summary"`
	Message          string    `db:"message" json:"message"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type ConsultationFilters struct {
	Pagination
	HospitalID uuid.UUID
	Status     string
}
