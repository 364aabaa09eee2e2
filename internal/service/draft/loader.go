package draft

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

// Loader reads the persisted clinic into a Snapshot.
type Loader struct {
	clinics    repository.ClinicRepository
	doctors    repository.DoctorRepository
	hours      repository.BusinessHourRepository
	treatments repository.TreatmentRepository
}

func NewLoader(
	clinics repository.ClinicRepository,
	doctors repository.DoctorRepository,
	hours repository.BusinessHourRepository,
	treatments repository.TreatmentRepository,
) *Loader {
	return &Loader{clinics: clinics, doctors: doctors, hours: hours, treatments: treatments}
}

func (l *Loader) Load(ctx context.Context, clinicID uuid.UUID) (*Snapshot, error) {
	clinic, err := l.clinics.Get(ctx, clinicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("clinic", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	snap := &Snapshot{
		ClinicID:     clinic.ID,
		LegacyID:     clinic.LegacyID,
		Version:      clinic.Version,
		Name:         clinic.Name,
		Email:        clinic.Email,
		Phone:        clinic.Phone,
		Messaging:    clinic.MessagingHandles,
		Address:      clinic.Address,
		RegionCode:   clinic.RegionCode,
		ThumbnailURL: clinic.ThumbnailURL,
		Gallery:      cloneStrings(clinic.Gallery),
	}

	details, err := l.clinics.GetDetails(ctx, clinicID)
	switch {
	case err == nil:
		snap.Introduction = details.Introduction
		snap.IntroductionEn = details.IntroductionEn
		snap.SocialConsent = details.SocialConsent
		snap.Languages = cloneStrings(details.AvailableLanguages)
		snap.MiscNotes = details.MiscNotes
	case errors.Is(err, repository.ErrNotFound):
		snap.SocialConsent = model.ConsentUnset
	default:
		return nil, apperrors.StoreUnavailable(err)
	}

	hours, err := l.hours.ListByHospital(ctx, clinicID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	for _, h := range hours {
		snap.BusinessHours = append(snap.BusinessHours, *h)
	}

	doctors, err := l.doctors.ListByHospital(ctx, clinicID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	for _, d := range doctors {
		id := d.ID
		snap.Doctors = append(snap.Doctors, DoctorDraft{
			ID:          &id,
			Name:        d.Name,
			Bio:         d.Bio,
			PortraitURL: d.PortraitURL,
			Gender:      genderOf(d.PortraitURL),
			IsChief:     d.IsChief,
		})
	}

	offerings, err := l.treatments.ListOfferings(ctx, clinicID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	for _, o := range offerings {
		if o.IsMisc() {
			snap.TreatmentNotes = o.MiscNotes
			continue
		}
		if o.Code == nil {
			continue
		}
		snap.Treatments = append(snap.Treatments, TreatmentSelection{
			Code:          *o.Code,
			OptionLabel:   o.OptionLabel,
			Price:         o.Price,
			DiscountPrice: o.DiscountPrice,
			PriceVisible:  o.PriceVisible,
		})
	}

	return snap, nil
}

func genderOf(portraitURL string) string {
	switch portraitURL {
	case model.DefaultPortraitFemale:
		return "female"
	case model.DefaultPortraitMale:
		return "male"
	}
	return ""
}
