package draft

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// LastStep is the final wizard step.
const LastStep = 6

// Draft is one operator's editing session. Existing is the last persisted
// state and is only ever replaced as a whole; setters touch Pending only.
type Draft struct {
	SessionID     uuid.UUID `json:"session_id"`
	OperatorID    uuid.UUID `json:"operator_id"`
	Mode          Mode      `json:"mode"`
	Existing      *Snapshot `json:"existing,omitempty"`
	Pending       Snapshot  `json:"pending"`
	CompletedStep int       `json:"completed_step"`
	// UnsyncedStep is a committed step whose result was never read back.
	// Existing is stale while it is set.
	UnsyncedStep int       `json:"unsynced_step,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewCreateDraft starts a session for an operator with no clinic. The clinic
// id is assigned here, before anything is persisted.
func NewCreateDraft(operatorID uuid.UUID) *Draft {
	now := time.Now()
	return &Draft{
		SessionID:  uuid.New(),
		OperatorID: operatorID,
		Mode:       ModeCreate,
		Pending: Snapshot{
			ClinicID:      uuid.New(),
			SocialConsent: model.ConsentUnset,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEditDraft starts a session over a persisted clinic. Every step has
// already been saved once, so any of them may be revisited.
func NewEditDraft(operatorID uuid.UUID, existing *Snapshot) *Draft {
	now := time.Now()
	return &Draft{
		SessionID:     uuid.New(),
		OperatorID:    operatorID,
		Mode:          ModeEdit,
		Existing:      existing,
		Pending:       *existing.Clone(),
		CompletedStep: LastStep,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d *Draft) ClinicID() uuid.UUID {
	return d.Pending.ClinicID
}

// Persisted reports whether the clinic row exists in the store.
func (d *Draft) Persisted() bool {
	return d.Existing != nil
}

// Clone deep-copies the draft so stores never share memory with callers.
func (d *Draft) Clone() *Draft {
	out := *d
	out.Existing = d.Existing.Clone()
	out.Pending = *d.Pending.Clone()
	return &out
}

// Refresh installs a freshly read snapshot after step was committed. The
// committed fields in Pending are replaced with what the store now holds.
func (d *Draft) Refresh(fresh *Snapshot, step int) {
	d.Existing = fresh
	d.Mode = ModeEdit
	d.Pending.adoptStep(fresh, step)
	if step > d.CompletedStep {
		d.CompletedStep = step
	}
	d.UnsyncedStep = 0
	d.UpdatedAt = time.Now()
}

// MarkUnsynced records that step was committed but could not be read back.
func (d *Draft) MarkUnsynced(step int) {
	d.UnsyncedStep = step
	if step > d.CompletedStep {
		d.CompletedStep = step
	}
	d.UpdatedAt = time.Now()
}

// Synced reports whether Existing reflects every committed step.
func (d *Draft) Synced() bool {
	return d.UnsyncedStep == 0
}

func (d *Draft) touch() {
	d.UpdatedAt = time.Now()
}

func (d *Draft) SetBasicInfo(name, email, phone string, messaging model.MessagingHandles) {
	d.Pending.Name = name
	d.Pending.Email = email
	d.Pending.Phone = phone
	d.Pending.Messaging = messaging
	d.touch()
}

func (d *Draft) SetAddress(addr model.Address, regionCode int) {
	d.Pending.Address = cloneAddress(addr)
	d.Pending.RegionCode = regionCode
	d.touch()
}

func (d *Draft) SetBusinessHours(hours []model.BusinessHour) {
	d.Pending.BusinessHours = append([]model.BusinessHour(nil), hours...)
	d.touch()
}

// SetMedia records which persisted media the operator keeps. New files are
// supplied with the commit itself.
func (d *Draft) SetMedia(thumbnailURL string, gallery []string) {
	d.Pending.ThumbnailURL = thumbnailURL
	d.Pending.Gallery = cloneStrings(gallery)
	d.touch()
}

func (d *Draft) SetIntroduction(intro, introEn string) {
	d.Pending.Introduction = intro
	d.Pending.IntroductionEn = introEn
	d.touch()
}

func (d *Draft) SetConsent(c model.Consent) {
	d.Pending.SocialConsent = c
	d.touch()
}

func (d *Draft) SetDoctors(doctors []DoctorDraft) {
	tmp := Snapshot{Doctors: doctors}
	d.Pending.Doctors = tmp.Clone().Doctors
	d.touch()
}

func (d *Draft) SetTreatments(selections []TreatmentSelection, notes string) {
	d.Pending.Treatments = append([]TreatmentSelection(nil), selections...)
	d.Pending.TreatmentNotes = notes
	d.touch()
}

func (d *Draft) SetLanguages(languages []string) {
	d.Pending.Languages = cloneStrings(languages)
	d.touch()
}

func (d *Draft) SetMiscNotes(notes string) {
	d.Pending.MiscNotes = notes
	d.touch()
}
