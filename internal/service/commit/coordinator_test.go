package commit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository/memory"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	"github.com/jwalitptl/clinic-console/internal/service/event"
	"github.com/jwalitptl/clinic-console/internal/service/identity"
	"github.com/jwalitptl/clinic-console/internal/service/media"
	"github.com/jwalitptl/clinic-console/internal/service/staff"
	"github.com/jwalitptl/clinic-console/internal/service/taxonomy"
	"github.com/jwalitptl/clinic-console/internal/storage"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
	"github.com/jwalitptl/clinic-console/pkg/validator"
)

type testEnv struct {
	db     *memory.DB
	store  *storage.MemoryStore
	broker *messaging.MemoryBroker
	coord  *Coordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := memory.NewDB()
	store := storage.NewMemoryStore("https://cdn.test/", "media")
	broker := messaging.NewMemoryBroker()
	log := logger.Nop()
	m := metrics.Nop()

	clinics := memory.NewClinicRepository(db)
	doctors := memory.NewDoctorRepository(db)
	hours := memory.NewBusinessHourRepository(db)
	treatments := memory.NewTreatmentRepository(db)

	manager := media.NewManager(store, media.Limits{
		MaxFileBytes:   1 << 20,
		AllowedTypes:   []string{"image/png", "image/jpeg"},
		GalleryMin:     3,
		GallerySoftMax: 7,
	}, log, m)

	coord := NewCoordinator(Deps{
		Drafts:           draft.NewMemoryStore(time.Hour),
		Loader:           draft.NewLoader(clinics, doctors, hours, treatments),
		Identity:         identity.NewService(memory.NewOperatorRepository(db), log),
		Clinics:          clinics,
		Hours:            hours,
		Treatments:       treatments,
		Feedback:         memory.NewFeedbackRepository(db),
		Media:            manager,
		Staff:            staff.NewReconciler(doctors, manager, log),
		Taxonomy:         taxonomy.NewResolver(treatments, log, m),
		Events:           event.NewEventService(broker, log),
		Validator:        validator.New(),
		Logger:           log,
		Metrics:          m,
		MaxCompensations: 32,
	})
	return &testEnv{db: db, store: store, broker: broker, coord: coord}
}

func image(name string) media.Asset {
	return media.Asset{Filename: name, ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

func imageRef(name string) *media.Asset {
	a := image(name)
	return &a
}

func week() *HoursInput {
	in := &HoursInput{}
	for day := 0; day < model.DaysPerWeek; day++ {
		h := HourInput{DayOfWeek: day, Open: "09:00", Close: "18:00", Status: "OPEN"}
		if day == 0 {
			h = HourInput{DayOfWeek: day, Status: "CLOSED"}
		}
		in.Hours = append(in.Hours, h)
	}
	return in
}

func (e *testEnv) commit(t *testing.T, d *draft.Draft, step int, req Request) *Result {
	t.Helper()
	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, step, req)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	return res
}

// throughMedia creates a clinic and commits steps 1 to 4.
func (e *testEnv) throughMedia(t *testing.T) *draft.Draft {
	t.Helper()
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)

	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Sunny Dental", Email: "info@sunny.example"}})
	e.commit(t, d, 2, Request{Input: &AddressInput{Address: model.Address{RoadAddress: "1 Main St"}, RegionCode: 11}})
	e.commit(t, d, 3, Request{Input: week()})
	res := e.commit(t, d, 4, Request{
		Input:     &MediaInput{Introduction: "Welcome"},
		Thumbnail: imageRef("front.png"),
		Gallery:   []media.Asset{image("a.png"), image("b.png"), image("c.png")},
	})
	return res.Draft
}

func TestCommit_NewClinicWizard(t *testing.T) {
	e := newTestEnv(t)
	e.db.SeedCatalog(&model.Treatment{Code: 101, Name: "Implant"})

	d := e.throughMedia(t)
	require.NotNil(t, d.Existing)
	clinicID := d.ClinicID()

	clinic, ok := e.db.Clinic(clinicID)
	require.True(t, ok)
	assert.Equal(t, int64(1), clinic.LegacyID)
	assert.Equal(t, "Sunny Dental", clinic.Name)
	assert.Equal(t, "1 Main St", clinic.RoadAddress)
	require.Len(t, clinic.Gallery, 3)
	assert.Contains(t, clinic.Gallery[0], "_a.png")
	assert.Contains(t, clinic.Gallery[2], "_c.png")
	assert.Contains(t, clinic.ThumbnailURL, "/thumbnail/")
	assert.Len(t, e.store.Paths(), 4)
	assert.Len(t, d.Existing.BusinessHours, 7)

	op, ok := e.db.Operator(d.OperatorID)
	require.True(t, ok)
	require.NotNil(t, op.HospitalID)
	assert.Equal(t, clinicID, *op.HospitalID)

	res := e.commit(t, d, 5, Request{
		Input:     &StaffInput{Doctors: []draft.DoctorDraft{{Name: "Dr. X", IsChief: true}}},
		Portraits: map[int]media.Asset{0: image("x.png")},
	})
	require.Len(t, res.Draft.Existing.Doctors, 1)
	assert.NotNil(t, res.Draft.Existing.Doctors[0].ID)
	assert.Contains(t, res.Draft.Existing.Doctors[0].PortraitURL, "images/doctors/")

	res = e.commit(t, d, 6, Request{
		Input: &TreatmentsInput{
			Treatments:     []draft.TreatmentSelection{{Code: 101, Price: 1000, PriceVisible: true}, {Code: 999, Price: 5}},
			TreatmentNotes: "Ask about packages",
			Languages:      []string{"en", "ko"},
			MiscNotes:      "Parking available",
		},
		Feedback: "All good",
	})
	assert.Equal(t, "Clinic profile saved.", res.Message)
	assert.Equal(t, draft.LastStep, res.Draft.CompletedStep)
	require.Len(t, res.Draft.Existing.Treatments, 1)
	assert.Equal(t, 101, res.Draft.Existing.Treatments[0].Code)
	assert.Equal(t, "Ask about packages", res.Draft.Existing.TreatmentNotes)

	details, ok := e.db.Details(clinicID)
	require.True(t, ok)
	assert.Equal(t, "Welcome", details.Introduction)
	assert.Equal(t, []string{"en", "ko"}, []string(details.AvailableLanguages))
	assert.Equal(t, "Parking available", details.MiscNotes)

	notes := e.db.Feedback()
	require.Len(t, notes, 1)
	assert.Equal(t, 6, notes[0].Step)

	assert.Len(t, e.broker.Published(model.EventStepCommitted), 6)
	published := e.broker.Published(model.EventFeedbackCreated)
	require.Len(t, published, 1)
	var evt model.FeedbackCreatedEvent
	require.NoError(t, json.Unmarshal(published[0], &evt))
	assert.Equal(t, "Sunny Dental", evt.ClinicName)
	assert.Equal(t, "All good", evt.Content)
}

func TestCommit_StepOrder(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	before := len(e.db.Calls())

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 3, Request{Input: week()})

	assert.Equal(t, apperrors.KindStepOrder, apperrors.KindOf(err))
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, 3, res.NextStep)
	assert.Len(t, e.db.Calls(), before)
}

func TestCommit_ValidationWritesNothing(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	before := len(e.db.Calls())

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 1,
		Request{Input: &BasicInfoInput{Name: "Clinic", Email: "not-an-email"}})

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Contains(t, res.Message, "email")
	assert.Len(t, e.db.Calls(), before)
}

func TestCommit_AddressRequired(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})

	_, err = e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 2, Request{Input: &AddressInput{}})

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, "address is required", apperrors.Message(err))
}

func TestCommit_GalleryUploadFailureRollsBack(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	e.commit(t, d, 2, Request{Input: &AddressInput{Address: model.Address{LotAddress: "12-3"}}})
	e.commit(t, d, 3, Request{Input: week()})

	e.store.OnUpload(func(path string) error {
		if !strings.HasSuffix(path, "_b.png") {
			return nil
		}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			for _, p := range e.store.Paths() {
				if strings.HasSuffix(p, "_a.png") {
					return errors.New("storage unavailable")
				}
			}
			time.Sleep(time.Millisecond)
		}
		return errors.New("storage unavailable")
	})

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 4, Request{
		Thumbnail: imageRef("front.png"),
		Gallery:   []media.Asset{image("a.png"), image("b.png"), image("c.png")},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorageUpload, apperrors.KindOf(err))
	assert.Equal(t, apperrors.MsgUploadFailed, res.Message)
	assert.Empty(t, e.store.Paths())
	assert.NotContains(t, e.db.Calls(), "clinics.UpdateMedia")

	var removedA bool
	for _, p := range e.store.Removed() {
		if strings.HasSuffix(p, "_a.png") {
			removedA = true
		}
	}
	assert.True(t, removedA)
}

func TestCommit_StoreFailureCompensatesUploads(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	e.commit(t, d, 2, Request{Input: &AddressInput{Address: model.Address{LotAddress: "12-3"}}})
	e.commit(t, d, 3, Request{Input: week()})
	e.db.FailOn("clinics.UpdateMedia", &pq.Error{Code: "22P02"})

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 4, Request{
		Thumbnail: imageRef("front.png"),
		Gallery:   []media.Asset{image("a.png"), image("b.png"), image("c.png")},
	})

	assert.Equal(t, apperrors.KindStoreWrite, apperrors.KindOf(err))
	assert.Equal(t, apperrors.MsgMalformedNumber, res.Message)
	assert.Empty(t, e.store.Paths())
	assert.Len(t, e.store.Removed(), 4)
}

func TestCommit_ReplaceThumbnailDeletesOld(t *testing.T) {
	e := newTestEnv(t)
	d := e.throughMedia(t)
	oldThumb := d.Existing.ThumbnailURL
	oldPath, ok := e.store.PathFromURL(oldThumb)
	require.True(t, ok)
	gallery := d.Existing.Gallery

	res := e.commit(t, d, 4, Request{
		Input:     &MediaInput{Gallery: []string{gallery[2], gallery[0]}, Introduction: "Welcome"},
		Thumbnail: imageRef("new.png"),
		Gallery:   []media.Asset{image("d.png")},
	})

	assert.NotEqual(t, oldThumb, res.Draft.Existing.ThumbnailURL)
	assert.Contains(t, res.Draft.Existing.ThumbnailURL, "_new.png")
	require.Len(t, res.Draft.Existing.Gallery, 3)
	assert.Equal(t, gallery[2], res.Draft.Existing.Gallery[0])
	assert.Equal(t, gallery[0], res.Draft.Existing.Gallery[1])
	assert.Contains(t, res.Draft.Existing.Gallery[2], "_d.png")

	removedPath, _ := e.store.PathFromURL(gallery[1])
	assert.ElementsMatch(t, []string{oldPath, removedPath}, e.store.Removed())
	assert.False(t, e.store.Exists(oldPath))
}

func TestCommit_GalleryTooSmall(t *testing.T) {
	e := newTestEnv(t)
	d := e.throughMedia(t)
	before := e.store.Paths()

	_, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 4, Request{
		Input:   &MediaInput{ThumbnailURL: d.Existing.ThumbnailURL, Gallery: d.Existing.Gallery[:1]},
		Gallery: []media.Asset{image("e.png")},
	})

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, before, e.store.Paths())
}

func TestCommit_StaffEditReplacesPortrait(t *testing.T) {
	e := newTestEnv(t)
	d := e.throughMedia(t)
	res := e.commit(t, d, 5, Request{
		Input:     &StaffInput{Doctors: []draft.DoctorDraft{{Name: "Dr. A"}, {Name: "Dr. B"}}},
		Portraits: map[int]media.Asset{0: image("a-face.png"), 1: image("b-face.png")},
	})
	doctors := res.Draft.Existing.Doctors
	require.Len(t, doctors, 2)
	oldA, _ := e.store.PathFromURL(doctors[0].PortraitURL)
	oldB, _ := e.store.PathFromURL(doctors[1].PortraitURL)

	// keep A with a new portrait, drop B, add C
	a := doctors[0]
	res = e.commit(t, res.Draft, 5, Request{
		Input:     &StaffInput{Doctors: []draft.DoctorDraft{a, {Name: "Ms. C"}}},
		Portraits: map[int]media.Asset{0: image("a-new.png")},
	})

	doctors = res.Draft.Existing.Doctors
	require.Len(t, doctors, 2)
	assert.Equal(t, *a.ID, *doctors[0].ID)
	assert.Contains(t, doctors[0].PortraitURL, "_a-new.png")
	assert.Equal(t, model.DefaultPortraitFemale, doctors[1].PortraitURL)
	assert.Equal(t, "female", doctors[1].Gender)
	assert.ElementsMatch(t, []string{oldA, oldB}, e.store.Removed())
}

func TestCommit_StaffFailureRemovesNewPortraits(t *testing.T) {
	e := newTestEnv(t)
	d := e.throughMedia(t)
	before := e.store.Paths()
	e.db.FailOn("doctors.Create", &pq.Error{Code: "23505"})

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 5, Request{
		Input:     &StaffInput{Doctors: []draft.DoctorDraft{{Name: "Dr. A"}}},
		Portraits: map[int]media.Asset{0: image("a-face.png")},
	})

	assert.Equal(t, apperrors.KindStoreWrite, apperrors.KindOf(err))
	assert.Equal(t, apperrors.MsgDuplicate, res.Message)
	assert.Equal(t, before, e.store.Paths())
}

func TestCommit_VersionConflictBetweenSessions(t *testing.T) {
	e := newTestEnv(t)
	first := e.throughMedia(t)
	second, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, draft.ModeEdit, second.Mode)

	e.commit(t, first, 1, Request{Input: &BasicInfoInput{Name: "Renamed", Email: "a@b.example"}})
	res, err := e.coord.Commit(context.Background(), second.SessionID, second.OperatorID, 1,
		Request{Input: &BasicInfoInput{Name: "Other", Email: "a@b.example"}})

	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, apperrors.MsgConflict, res.Message)
	clinic, _ := e.db.Clinic(first.ClinicID())
	assert.Equal(t, "Renamed", clinic.Name)
}

func TestCommit_GatewayTimeoutMessage(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	e.db.FailOn("clinics.UpdateAddress", context.DeadlineExceeded)

	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 2,
		Request{Input: &AddressInput{Address: model.Address{RoadAddress: "1 Main St"}}})

	assert.Equal(t, apperrors.KindGatewayTimeout, apperrors.KindOf(err))
	assert.Equal(t, apperrors.MsgTryAgain, res.Message)

	// the staged address survives for the retry
	e.db.FailOn("clinics.UpdateAddress", nil)
	res = e.commit(t, d, 2, Request{})
	assert.Equal(t, "1 Main St", res.Draft.Existing.Address.RoadAddress)
}

func TestCommit_RetryAfterPartialCreate(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.db.FailOn("clinics.CreateDetails", errors.New("connection reset"))

	_, err = e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 1,
		Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	require.Error(t, err)

	e.db.FailOn("clinics.CreateDetails", nil)
	res := e.commit(t, d, 1, Request{})

	assert.Equal(t, "Clinic", res.Draft.Existing.Name)
	_, ok := e.db.Details(d.ClinicID())
	assert.True(t, ok)
}

func TestCommit_FeedbackOnAnyStep(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)

	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}, Feedback: "  "})
	e.commit(t, d, 1, Request{Feedback: "The phone field is confusing"})

	notes := e.db.Feedback()
	require.Len(t, notes, 1)
	assert.Equal(t, 1, notes[0].Step)
	assert.Equal(t, "The phone field is confusing", notes[0].Content)
}

func TestSession_OwnedByOperator(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	other, err := e.coord.Begin(context.Background(), "ext-2", "other@example.com")
	require.NoError(t, err)

	_, err = e.coord.Get(context.Background(), d.SessionID, other.OperatorID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	require.NoError(t, e.coord.End(context.Background(), d.SessionID, d.OperatorID))
	_, err = e.coord.Get(context.Background(), d.SessionID, d.OperatorID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestStage_MutatesPendingOnly(t *testing.T) {
	e := newTestEnv(t)
	d := e.throughMedia(t)

	staged, err := e.coord.Stage(context.Background(), d.SessionID, d.OperatorID,
		&BasicInfoInput{Name: "Draft Name", Email: "a@b.example"})

	require.NoError(t, err)
	assert.Equal(t, "Draft Name", staged.Pending.Name)
	assert.Equal(t, "Sunny Dental", staged.Existing.Name)
	clinic, _ := e.db.Clinic(d.ClinicID())
	assert.Equal(t, "Sunny Dental", clinic.Name)
}

func TestStage_RejectsInvalidHours(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	hours := week()
	hours.Hours[3].Close = "08:00"

	_, err = e.coord.Stage(context.Background(), d.SessionID, d.OperatorID, hours)

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCommit_FullSagaRemovesWholeBatch(t *testing.T) {
	e := newTestEnv(t)
	e.coord.MaxCompensations = 2
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	e.commit(t, d, 2, Request{Input: &AddressInput{Address: model.Address{LotAddress: "12-3"}}})
	e.commit(t, d, 3, Request{Input: week()})

	_, err = e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 4, Request{
		Thumbnail: imageRef("front.png"),
		Gallery:   []media.Asset{image("a.png"), image("b.png"), image("c.png"), image("d.png")},
	})

	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.Empty(t, e.store.Paths())
	assert.NotContains(t, e.db.Calls(), "clinics.UpdateMedia")
}

func TestCommit_MediaDiffAfterFailedReload(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)
	e.commit(t, d, 1, Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	e.commit(t, d, 2, Request{Input: &AddressInput{Address: model.Address{LotAddress: "12-3"}}})
	e.commit(t, d, 3, Request{Input: week()})

	e.db.FailOn("doctors.ListByHospital", errors.New("connection reset"))
	res := e.commit(t, d, 4, Request{
		Thumbnail: imageRef("front.png"),
		Gallery:   []media.Asset{image("a.png"), image("b.png"), image("c.png")},
	})
	assert.Empty(t, res.Draft.Existing.Gallery)
	assert.Equal(t, 4, res.Draft.UnsyncedStep)
	assert.Len(t, e.store.Paths(), 4)

	e.db.FailOn("doctors.ListByHospital", nil)
	res = e.commit(t, d, 4, Request{
		Input:     &MediaInput{Introduction: "Welcome"},
		Thumbnail: imageRef("porch.png"),
		Gallery:   []media.Asset{image("d.png"), image("e.png"), image("f.png")},
	})

	assert.True(t, res.Draft.Synced())
	require.Len(t, res.Draft.Existing.Gallery, 3)
	assert.Contains(t, res.Draft.Existing.Gallery[0], "_d.png")

	paths := e.store.Paths()
	require.Len(t, paths, 4)
	for _, p := range paths {
		for _, old := range []string{"_front.png", "_a.png", "_b.png", "_c.png"} {
			assert.False(t, strings.HasSuffix(p, old), p)
		}
	}
}

func TestStage_ResyncsAfterFailedReload(t *testing.T) {
	e := newTestEnv(t)
	d, err := e.coord.Begin(context.Background(), "ext-1", "owner@example.com")
	require.NoError(t, err)

	e.db.FailOn("doctors.ListByHospital", errors.New("connection reset"))
	res, err := e.coord.Commit(context.Background(), d.SessionID, d.OperatorID, 1,
		Request{Input: &BasicInfoInput{Name: "Clinic", Email: "a@b.example"}})
	require.NoError(t, err)
	assert.Nil(t, res.Draft.Existing)

	e.db.FailOn("doctors.ListByHospital", nil)
	staged, err := e.coord.Stage(context.Background(), d.SessionID, d.OperatorID,
		&AddressInput{Address: model.Address{LotAddress: "12-3"}})
	require.NoError(t, err)
	require.NotNil(t, staged.Existing)
	assert.Equal(t, "Clinic", staged.Existing.Name)
	assert.Equal(t, "12-3", staged.Pending.Address.LotAddress)
	assert.True(t, staged.Synced())
}
