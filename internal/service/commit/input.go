package commit

import (
	"sort"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

// StepInput is the set of fields one wizard step edits.
type StepInput interface {
	Step() int
	// check runs the rules struct tags cannot express.
	check() error
	applyTo(d *draft.Draft)
}

type BasicInfoInput struct {
	Name      string                 `json:"name" validate:"required,max=200"`
	Email     string                 `json:"email" validate:"required,email,max=254"`
	Phone     string                 `json:"phone" validate:"max=40"`
	Messaging model.MessagingHandles `json:"messaging"`
}

func (in *BasicInfoInput) Step() int    { return 1 }
func (in *BasicInfoInput) check() error { return nil }
func (in *BasicInfoInput) applyTo(d *draft.Draft) {
	d.SetBasicInfo(in.Name, in.Email, in.Phone, in.Messaging)
}

type AddressInput struct {
	Address    model.Address `json:"address"`
	RegionCode int           `json:"region_code" validate:"gte=0"`
}

func (in *AddressInput) Step() int { return 2 }

func (in *AddressInput) check() error {
	if in.Address.IsEmpty() {
		return apperrors.Validation("address is required")
	}
	if lat := in.Address.Latitude; lat != nil && (*lat < -90 || *lat > 90) {
		return apperrors.Validation("latitude must be between -90 and 90")
	}
	if lng := in.Address.Longitude; lng != nil && (*lng < -180 || *lng > 180) {
		return apperrors.Validation("longitude must be between -180 and 180")
	}
	if (in.Address.Latitude == nil) != (in.Address.Longitude == nil) {
		return apperrors.Validation("latitude and longitude must be given together")
	}
	return nil
}

func (in *AddressInput) applyTo(d *draft.Draft) { d.SetAddress(in.Address, in.RegionCode) }

type HourInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	Open      string `json:"open" validate:"hhmm"`
	Close     string `json:"close" validate:"hhmm"`
	Status    string `json:"status" validate:"hourstatus"`
}

type HoursInput struct {
	Hours []HourInput `json:"hours" validate:"len=7,dive"`
}

func (in *HoursInput) Step() int { return 3 }

func (in *HoursInput) check() error {
	seen := make(map[int]bool, len(in.Hours))
	for _, h := range in.Hours {
		if seen[h.DayOfWeek] {
			return apperrors.Validationf("day %d is listed twice", h.DayOfWeek)
		}
		seen[h.DayOfWeek] = true
		if model.HourStatus(h.Status) != model.HourStatusOpen {
			continue
		}
		if h.Open == "" || h.Close == "" {
			return apperrors.Validationf("day %d is open but has no opening hours", h.DayOfWeek)
		}
		// HH:MM compares correctly as a string
		if h.Open >= h.Close {
			return apperrors.Validationf("day %d closes before it opens", h.DayOfWeek)
		}
	}
	return nil
}

func (in *HoursInput) applyTo(d *draft.Draft) {
	hours := make([]model.BusinessHour, len(in.Hours))
	for i, h := range in.Hours {
		hours[i] = model.BusinessHour{
			DayOfWeek: h.DayOfWeek,
			OpenTime:  h.Open,
			CloseTime: h.Close,
			Status:    model.HourStatus(h.Status),
		}
		if hours[i].Status != model.HourStatusOpen {
			hours[i].OpenTime, hours[i].CloseTime = "", ""
		}
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].DayOfWeek < hours[j].DayOfWeek })
	d.SetBusinessHours(hours)
}

// MediaInput lists the persisted images the operator keeps, in display
// order. New files travel with the commit request.
type MediaInput struct {
	ThumbnailURL   string        `json:"thumbnail_url"`
	Gallery        []string      `json:"gallery"`
	Introduction   string        `json:"introduction" validate:"max=5000"`
	IntroductionEn string        `json:"introduction_en" validate:"max=5000"`
	SocialConsent  model.Consent `json:"social_consent" validate:"omitempty,oneof=unset agreed declined"`
}

func (in *MediaInput) Step() int    { return 4 }
func (in *MediaInput) check() error { return nil }

func (in *MediaInput) applyTo(d *draft.Draft) {
	d.SetMedia(in.ThumbnailURL, in.Gallery)
	d.SetIntroduction(in.Introduction, in.IntroductionEn)
	consent := in.SocialConsent
	if consent == "" {
		consent = model.ConsentUnset
	}
	d.SetConsent(consent)
}

type StaffInput struct {
	Doctors []draft.DoctorDraft `json:"doctors" validate:"dive"`
}

func (in *StaffInput) Step() int { return 5 }

func (in *StaffInput) check() error {
	chiefs := 0
	for _, doc := range in.Doctors {
		if doc.IsChief {
			chiefs++
		}
	}
	if chiefs > 1 {
		return apperrors.Validation("only one doctor can be marked as chief")
	}
	return nil
}

func (in *StaffInput) applyTo(d *draft.Draft) { d.SetDoctors(in.Doctors) }

type TreatmentsInput struct {
	Treatments     []draft.TreatmentSelection `json:"treatments" validate:"dive"`
	TreatmentNotes string                     `json:"treatment_notes" validate:"max=2000"`
	Languages      []string                   `json:"languages" validate:"dive,required,max=40"`
	MiscNotes      string                     `json:"misc_notes" validate:"max=2000"`
}

func (in *TreatmentsInput) Step() int { return 6 }

func (in *TreatmentsInput) check() error {
	for _, t := range in.Treatments {
		if t.DiscountPrice > 0 && t.DiscountPrice > t.Price {
			return apperrors.Validationf("treatment %d has a discount price above its price", t.Code)
		}
	}
	return nil
}

func (in *TreatmentsInput) applyTo(d *draft.Draft) {
	d.SetTreatments(in.Treatments, in.TreatmentNotes)
	d.SetLanguages(in.Languages)
	d.SetMiscNotes(in.MiscNotes)
}

// NewInput returns an empty input for step, ready to be decoded into.
func NewInput(step int) (StepInput, error) {
	switch step {
	case 1:
		return &BasicInfoInput{}, nil
	case 2:
		return &AddressInput{}, nil
	case 3:
		return &HoursInput{}, nil
	case 4:
		return &MediaInput{}, nil
	case 5:
		return &StaffInput{}, nil
	case 6:
		return &TreatmentsInput{}, nil
	}
	return nil, apperrors.Validationf("unknown step %d", step)
}

// inputFromPending rebuilds the input of step from what the draft holds.
func inputFromPending(step int, p *draft.Snapshot) StepInput {
	switch step {
	case 1:
		return &BasicInfoInput{Name: p.Name, Email: p.Email, Phone: p.Phone, Messaging: p.Messaging}
	case 2:
		return &AddressInput{Address: p.Address, RegionCode: p.RegionCode}
	case 3:
		in := &HoursInput{Hours: make([]HourInput, len(p.BusinessHours))}
		for i, h := range p.BusinessHours {
			in.Hours[i] = HourInput{DayOfWeek: h.DayOfWeek, Open: h.OpenTime, Close: h.CloseTime, Status: string(h.Status)}
		}
		return in
	case 4:
		return &MediaInput{
			ThumbnailURL:   p.ThumbnailURL,
			Gallery:        p.Gallery,
			Introduction:   p.Introduction,
			IntroductionEn: p.IntroductionEn,
			SocialConsent:  p.SocialConsent,
		}
	case 5:
		return &StaffInput{Doctors: p.Doctors}
	case 6:
		return &TreatmentsInput{
			Treatments:     p.Treatments,
			TreatmentNotes: p.TreatmentNotes,
			Languages:      p.Languages,
			MiscNotes:      p.MiscNotes,
		}
	}
	return nil
}
