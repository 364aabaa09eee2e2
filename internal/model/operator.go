package model

import (
	"github.com/google/uuid"
)

// Operator is the admin account that owns at most one clinic profile.
type Operator struct {
	Base
	ExternalUserID   string     `db:"external_user_id" json:"external_user_id"`
	Email            string     `db:"email" json:"email"`
	HospitalID       *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	IsActiveHospital bool       `db:"is_active_hospital" json:"is_active_hospital"`
	PasswordHash     *string    `db:"password_hash" json:"-"`
}

// HasClinic reports whether the operator already owns a persisted clinic.
func (o *Operator) HasClinic() bool {
	return o.HospitalID != nil && *o.HospitalID != uuid.Nil
}
