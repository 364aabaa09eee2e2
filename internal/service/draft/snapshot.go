package draft

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
)

// DoctorDraft is a staff member as edited in the wizard. ID is nil until
// the row has been persisted.
type DoctorDraft struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required,max=100"`
	Bio         string     `json:"bio" validate:"max=4000"`
	PortraitURL string     `json:"portrait_url"`
	// Gender picks the built-in portrait when no image is uploaded.
	Gender  string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	IsChief bool   `json:"is_chief"`
}

// TreatmentSelection is one offering keyed by its catalog code.
type TreatmentSelection struct {
	Code          int    `json:"code" validate:"required,gt=0"`
	OptionLabel   string `json:"option_label" validate:"max=200"`
	Price         int    `json:"price" validate:"gte=0"`
	DiscountPrice int    `json:"discount_price" validate:"gte=0"`
	PriceVisible  bool   `json:"price_visible"`
}

// Snapshot is the full clinic profile as seen by the wizard.
type Snapshot struct {
	ClinicID       uuid.UUID              `json:"clinic_id"`
	LegacyID       int64                  `json:"legacy_id,omitempty"`
	Version        int                    `json:"version"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone"`
	Messaging      model.MessagingHandles `json:"messaging"`
	Address        model.Address          `json:"address"`
	RegionCode     int                    `json:"region_code"`
	ThumbnailURL   string                 `json:"thumbnail_url"`
	Gallery        []string               `json:"gallery"`
	Introduction   string                 `json:"introduction"`
	IntroductionEn string                 `json:"introduction_en"`
	SocialConsent  model.Consent          `json:"social_consent"`
	BusinessHours  []model.BusinessHour   `json:"business_hours"`
	Doctors        []DoctorDraft          `json:"doctors"`
	Treatments     []TreatmentSelection   `json:"treatments"`
	TreatmentNotes string                 `json:"treatment_notes"`
	Languages      []string               `json:"languages"`
	MiscNotes      string                 `json:"misc_notes"`
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Address = cloneAddress(s.Address)
	out.Gallery = cloneStrings(s.Gallery)
	out.Languages = cloneStrings(s.Languages)
	if s.BusinessHours != nil {
		out.BusinessHours = append([]model.BusinessHour(nil), s.BusinessHours...)
	}
	if s.Treatments != nil {
		out.Treatments = append([]TreatmentSelection(nil), s.Treatments...)
	}
	if s.Doctors != nil {
		out.Doctors = make([]DoctorDraft, len(s.Doctors))
		for i, d := range s.Doctors {
			out.Doctors[i] = d
			if d.ID != nil {
				id := *d.ID
				out.Doctors[i].ID = &id
			}
		}
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneAddress(a model.Address) model.Address {
	out := a
	if a.Latitude != nil {
		v := *a.Latitude
		out.Latitude = &v
	}
	if a.Longitude != nil {
		v := *a.Longitude
		out.Longitude = &v
	}
	return out
}

// adoptStep copies the slice of fields written by step from src.
func (s *Snapshot) adoptStep(src *Snapshot, step int) {
	s.ClinicID = src.ClinicID
	s.LegacyID = src.LegacyID
	s.Version = src.Version

	c := src.Clone()
	switch step {
	case 1:
		s.Name, s.Email, s.Phone, s.Messaging = c.Name, c.Email, c.Phone, c.Messaging
	case 2:
		s.Address, s.RegionCode = c.Address, c.RegionCode
	case 3:
		s.BusinessHours = c.BusinessHours
	case 4:
		s.ThumbnailURL, s.Gallery = c.ThumbnailURL, c.Gallery
		s.Introduction, s.IntroductionEn, s.SocialConsent = c.Introduction, c.IntroductionEn, c.SocialConsent
	case 5:
		s.Doctors = c.Doctors
	case 6:
		s.Treatments, s.TreatmentNotes = c.Treatments, c.TreatmentNotes
		s.Languages, s.MiscNotes = c.Languages, c.MiscNotes
	}
}
