package model

import (
	"github.com/google/uuid"
)

// Built-in portraits used when no image was uploaded for a doctor.
const (
	DefaultPortraitMale   = "default://doctor/male"
	DefaultPortraitFemale = "default://doctor/female"
)

// IsDefaultPortrait reports whether url refers to a built-in portrait rather
// than an object in storage.
func IsDefaultPortrait(url string) bool {
	return url == DefaultPortraitMale || url == DefaultPortraitFemale
}

// Doctor is a staff member of a clinic.
type Doctor struct {
	Base
	HospitalID   uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name         string    `db:"name" json:"name"`
	Bio          string    `db:"bio" json:"bio"`
	PortraitURL  string    `db:"portrait_url" json:"portrait_url"`
	IsChief      bool      `db:"is_chief" json:"is_chief"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
}
