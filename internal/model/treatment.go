package model

import (
	"github.com/google/uuid"
)

// Treatment is an entry of the static treatment catalog.
type Treatment struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Code int       `db:"code" json:"code"`
	Name string    `db:"name" json:"name"`
}

// TreatmentOffering joins a clinic to a catalog treatment. A nil TreatmentID
// marks the miscellaneous notes row. Code is read-only, filled from the catalog.
type TreatmentOffering struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	HospitalID    uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	TreatmentID   *uuid.UUID `db:"treatment_id" json:"treatment_id,omitempty"`
	Code          *int       `db:"code" json:"code,omitempty"`
	OptionLabel   string     `db:"option_label" json:"option_label"`
	Price         int        `db:"price" json:"price"`
	DiscountPrice int        `db:"discount_price" json:"discount_price"`
	PriceVisible  bool       `db:"price_visible" json:"price_visible"`
	MiscNotes     string     `db:"misc_notes" json:"misc_notes"`
}

func (o TreatmentOffering) IsMisc() bool {
	return o.TreatmentID == nil
}
