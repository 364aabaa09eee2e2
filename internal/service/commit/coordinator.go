package commit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	"github.com/jwalitptl/clinic-console/internal/service/event"
	"github.com/jwalitptl/clinic-console/internal/service/identity"
	"github.com/jwalitptl/clinic-console/internal/service/media"
	"github.com/jwalitptl/clinic-console/internal/service/staff"
	"github.com/jwalitptl/clinic-console/internal/service/taxonomy"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
	"github.com/jwalitptl/clinic-console/pkg/validator"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is what the wizard shows after a commit.
type Result struct {
	Status   Status       `json:"status"`
	Message  string       `json:"message"`
	Step     int          `json:"step"`
	NextStep int          `json:"next_step"`
	Draft    *draft.Draft `json:"draft,omitempty"`
}

// Request carries the files and feedback of one commit. Input, when set, is
// staged into the draft before committing.
type Request struct {
	Input     StepInput
	Feedback  string
	Thumbnail *media.Asset
	Gallery   []media.Asset
	// Portraits maps a position in the staff list to its new portrait.
	Portraits map[int]media.Asset
}

type Deps struct {
	Drafts     draft.Store
	Loader     *draft.Loader
	Identity   *identity.Service
	Clinics    repository.ClinicRepository
	Hours      repository.BusinessHourRepository
	Treatments repository.TreatmentRepository
	Feedback   repository.FeedbackRepository
	Media      *media.Manager
	Staff      *staff.Reconciler
	Taxonomy   *taxonomy.Resolver
	Events     *event.EventService
	Validator  validator.Validator
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	// MaxCompensations bounds the undo list of one commit attempt.
	MaxCompensations int
}

// Coordinator runs wizard sessions and commits their steps.
type Coordinator struct {
	Deps
}

func NewCoordinator(deps Deps) *Coordinator {
	return &Coordinator{Deps: deps}
}

// Begin opens a session for the operator. An operator who already owns a
// clinic edits it; anyone else starts a new one.
func (c *Coordinator) Begin(ctx context.Context, externalUserID, email string) (*draft.Draft, error) {
	op, err := c.Identity.ResolveOperator(ctx, externalUserID, email)
	if err != nil {
		return nil, err
	}

	var d *draft.Draft
	if op.HasClinic() {
		snap, err := c.Loader.Load(ctx, *op.HospitalID)
		if err != nil {
			return nil, err
		}
		d = draft.NewEditDraft(op.ID, snap)
	} else {
		d = draft.NewCreateDraft(op.ID)
	}

	if err := c.Drafts.Create(ctx, d); err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("create draft: %w", err))
	}

	c.Logger.Info("wizard session started",
		"session_id", d.SessionID.String(),
		"clinic_id", d.ClinicID().String(),
		"mode", string(d.Mode))
	return d, nil
}

// Get returns the operator's session.
func (c *Coordinator) Get(ctx context.Context, sessionID, operatorID uuid.UUID) (*draft.Draft, error) {
	d, err := c.Drafts.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, draft.ErrDraftNotFound) {
			return nil, apperrors.NotFound("session", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	if d.OperatorID != operatorID {
		return nil, apperrors.NotFound("session", draft.ErrDraftNotFound)
	}
	return d, nil
}

// End discards the session. Persisted data is untouched.
func (c *Coordinator) End(ctx context.Context, sessionID, operatorID uuid.UUID) error {
	if _, err := c.Get(ctx, sessionID, operatorID); err != nil {
		return err
	}
	if err := c.Drafts.Delete(ctx, sessionID); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// Stage validates input and records it in the draft without writing it
// through to the store.
func (c *Coordinator) Stage(ctx context.Context, sessionID, operatorID uuid.UUID, input StepInput) (*draft.Draft, error) {
	d, err := c.Get(ctx, sessionID, operatorID)
	if err != nil {
		return nil, err
	}
	if err := c.validate(input); err != nil {
		return nil, err
	}
	if err := c.resync(ctx, d); err != nil {
		return nil, err
	}
	input.applyTo(d)
	if err := c.Drafts.Save(ctx, d); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return d, nil
}

func (c *Coordinator) validate(input StepInput) error {
	if err := c.Validator.Validate(input); err != nil {
		return err
	}
	return input.check()
}

// Commit writes step of the session through to the store as one unit of
// work. Failures undo this attempt's uploads and are never retried. The
// returned error, if any, is also described by the Result.
func (c *Coordinator) Commit(ctx context.Context, sessionID, operatorID uuid.UUID, step int, req Request) (*Result, error) {
	start := time.Now()
	stepLabel := strconv.Itoa(step)
	defer func() {
		c.Metrics.StepCommitDuration.WithLabelValues(stepLabel).Observe(time.Since(start).Seconds())
	}()

	d, err := c.Get(ctx, sessionID, operatorID)
	if err != nil {
		return c.failed(step, err), err
	}

	log := c.Logger.WithFields(map[string]interface{}{
		"session_id": sessionID.String(),
		"clinic_id":  d.ClinicID().String(),
		"step":       step,
	})

	if err := c.commit(ctx, d, step, req); err != nil {
		// Keep staged input and any version bumps from writes that landed.
		if saveErr := c.Drafts.Save(ctx, d); saveErr != nil {
			log.Error(saveErr, "failed to save draft after failed commit")
		}
		c.Metrics.StepCommits.WithLabelValues(stepLabel, string(StatusError)).Inc()
		log.Error(err, "step commit failed", "status", string(StatusError), "kind", int(apperrors.KindOf(err)))
		return c.failed(step, err), err
	}

	if err := c.Drafts.Save(ctx, d); err != nil {
		log.Error(err, "failed to save draft after commit")
	}
	c.Metrics.StepCommits.WithLabelValues(stepLabel, string(StatusSuccess)).Inc()
	log.Info("step committed", "status", string(StatusSuccess), "version", d.Pending.Version)

	c.emit(ctx, model.EventStepCommitted, model.StepCommittedEvent{
		SessionID: d.SessionID,
		ClinicID:  d.ClinicID(),
		Step:      step,
		At:        time.Now(),
	})

	res := &Result{Status: StatusSuccess, Message: "Saved.", Step: step, NextStep: step + 1, Draft: d}
	if step == draft.LastStep {
		res.Message = "Clinic profile saved."
		res.NextStep = draft.LastStep
	}
	return res, nil
}

func (c *Coordinator) failed(step int, err error) *Result {
	return &Result{Status: StatusError, Message: apperrors.Message(err), Step: step, NextStep: step}
}

func (c *Coordinator) commit(ctx context.Context, d *draft.Draft, step int, req Request) error {
	if step < 1 || step > draft.LastStep {
		return apperrors.Validationf("unknown step %d", step)
	}
	if step > d.CompletedStep+1 {
		return apperrors.StepOrder(step, d.CompletedStep)
	}
	if err := c.resync(ctx, d); err != nil {
		return err
	}
	if step > 1 && !d.Persisted() {
		return apperrors.StepOrder(step, 0)
	}

	if req.Input != nil {
		if req.Input.Step() != step {
			return apperrors.Validationf("fields for step %d sent to step %d", req.Input.Step(), step)
		}
		if err := c.validate(req.Input); err != nil {
			return err
		}
		req.Input.applyTo(d)
	}
	if err := c.validate(inputFromPending(step, &d.Pending)); err != nil {
		return err
	}

	saga := NewSaga(c.MaxCompensations, c.Logger, c.Metrics)
	var err error
	switch step {
	case 1:
		err = c.commitBasicInfo(ctx, d)
	case 2:
		err = c.commitAddress(ctx, d)
	case 3:
		err = c.commitHours(ctx, d)
	case 4:
		err = c.commitMedia(ctx, d, req, saga)
	case 5:
		err = c.commitStaff(ctx, d, req, saga)
	case 6:
		err = c.commitTreatments(ctx, d)
	}
	if err != nil {
		saga.Compensate(ctx)
		return err
	}

	if text := strings.TrimSpace(req.Feedback); text != "" {
		if err := c.recordFeedback(ctx, d, step, text); err != nil {
			return err
		}
	}

	fresh, err := c.Loader.Load(ctx, d.ClinicID())
	if err != nil {
		// The writes landed. Existing is re-read before the draft is used again.
		c.Logger.Warn("could not reload clinic after commit",
			"clinic_id", d.ClinicID().String(), "error", err.Error())
		d.MarkUnsynced(step)
		return nil
	}
	d.Refresh(fresh, step)
	return nil
}

// resync reads back a clinic whose reload failed after an earlier commit, so
// media and hours are diffed against what the store actually holds.
func (c *Coordinator) resync(ctx context.Context, d *draft.Draft) error {
	if d.Synced() {
		return nil
	}
	fresh, err := c.Loader.Load(ctx, d.ClinicID())
	if err != nil {
		return err
	}
	d.Refresh(fresh, d.UnsyncedStep)
	return nil
}

// updateVersioned runs a version checked update and records the new
// version in the draft.
func (c *Coordinator) updateVersioned(ctx context.Context, d *draft.Draft, clinic *model.ClinicProfile,
	update func(context.Context, *model.ClinicProfile) error) error {
	clinic.ID = d.ClinicID()
	clinic.Version = d.Pending.Version
	if err := update(ctx, clinic); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.Conflict(err)
		}
		return apperrors.FromStore(err)
	}
	d.Pending.Version = clinic.Version
	return nil
}

func (c *Coordinator) commitBasicInfo(ctx context.Context, d *draft.Draft) error {
	p := &d.Pending
	clinic := &model.ClinicProfile{
		Name:             strings.TrimSpace(p.Name),
		Email:            strings.TrimSpace(p.Email),
		Phone:            strings.TrimSpace(p.Phone),
		MessagingHandles: p.Messaging,
	}
	if d.Persisted() {
		return c.updateVersioned(ctx, d, clinic, c.Clinics.UpdateBasicInfo)
	}

	// A previous attempt may have created the row before failing.
	stored, err := c.Clinics.Get(ctx, p.ClinicID)
	switch {
	case err == nil:
		p.Version = stored.Version
		p.LegacyID = stored.LegacyID
		if err := c.updateVersioned(ctx, d, clinic, c.Clinics.UpdateBasicInfo); err != nil {
			return err
		}
	case errors.Is(err, repository.ErrNotFound):
		clinic.ID = p.ClinicID
		if err := c.Clinics.Create(ctx, clinic); err != nil {
			return apperrors.FromStore(fmt.Errorf("create clinic: %w", err))
		}
		p.Version = clinic.Version
		p.LegacyID = clinic.LegacyID
	default:
		return apperrors.FromStore(err)
	}

	if _, err := c.Clinics.GetDetails(ctx, p.ClinicID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.FromStore(err)
		}
		details := &model.ClinicDetails{HospitalID: p.ClinicID, SocialConsent: model.ConsentUnset}
		if err := c.Clinics.CreateDetails(ctx, details); err != nil {
			return apperrors.FromStore(fmt.Errorf("create clinic details: %w", err))
		}
	}

	return c.Identity.LinkClinic(ctx, d.OperatorID, p.ClinicID)
}

func (c *Coordinator) commitAddress(ctx context.Context, d *draft.Draft) error {
	clinic := &model.ClinicProfile{Address: d.Pending.Address, RegionCode: d.Pending.RegionCode}
	return c.updateVersioned(ctx, d, clinic, c.Clinics.UpdateAddress)
}

func (c *Coordinator) commitHours(ctx context.Context, d *draft.Draft) error {
	persisted := make(map[int]bool, model.DaysPerWeek)
	for _, h := range d.Existing.BusinessHours {
		persisted[h.DayOfWeek] = true
	}

	var create []*model.BusinessHour
	for _, h := range d.Pending.BusinessHours {
		row := h
		row.HospitalID = d.ClinicID()
		if !persisted[row.DayOfWeek] {
			create = append(create, &row)
			continue
		}
		err := c.Hours.Update(ctx, &row)
		if errors.Is(err, repository.ErrNotFound) {
			create = append(create, &row)
			continue
		}
		if err != nil {
			return apperrors.FromStore(fmt.Errorf("update hours for day %d: %w", row.DayOfWeek, err))
		}
	}

	if len(create) > 0 {
		if err := c.Hours.Create(ctx, create); err != nil {
			return apperrors.FromStore(fmt.Errorf("create hours: %w", err))
		}
	}
	return nil
}

// track registers uploaded URLs for removal should the commit fail. When the
// saga is full, every URL not yet registered is removed at once.
func (c *Coordinator) track(ctx context.Context, saga *Saga, urls ...string) error {
	for i, url := range urls {
		err := saga.Add(url, func(ctx context.Context) error {
			return c.Media.RemoveAsset(ctx, url)
		})
		if err != nil {
			c.Media.DeleteAssets(context.WithoutCancel(ctx), urls[i:])
			return apperrors.Internal(err)
		}
	}
	return nil
}

func (c *Coordinator) commitMedia(ctx context.Context, d *draft.Draft, req Request, saga *Saga) error {
	p := &d.Pending
	clinicID := d.ClinicID()
	existingThumb := d.Existing.ThumbnailURL

	keepThumb := p.ThumbnailURL != ""
	if keepThumb && p.ThumbnailURL != existingThumb {
		return apperrors.Validation("thumbnail does not belong to this clinic")
	}
	if !keepThumb && req.Thumbnail == nil {
		return apperrors.Validation("a thumbnail image is required")
	}

	kept, err := media.Reconcile(d.Existing.Gallery, nil, p.Gallery)
	if err != nil {
		return err
	}
	if err := c.Media.ValidateGallery(clinicID, len(kept.FinalRefs)+len(req.Gallery)); err != nil {
		return err
	}
	if req.Thumbnail != nil {
		if err := c.Media.ValidateAsset(*req.Thumbnail); err != nil {
			return err
		}
	}
	for _, a := range req.Gallery {
		if err := c.Media.ValidateAsset(a); err != nil {
			return err
		}
	}

	var uploaded []string
	newThumb := ""
	if req.Thumbnail != nil {
		if newThumb, err = c.Media.UploadAsset(ctx, *req.Thumbnail, media.ThumbnailPrefix(clinicID)); err != nil {
			return err
		}
		if err := c.track(ctx, saga, newThumb); err != nil {
			return err
		}
		uploaded = append(uploaded, newThumb)
	}

	galleryURLs, err := c.Media.UploadBatch(ctx, req.Gallery, media.GalleryPrefix(clinicID))
	if err != nil {
		return err
	}
	if err := c.track(ctx, saga, galleryURLs...); err != nil {
		return err
	}
	uploaded = append(uploaded, galleryURLs...)

	gallery, err := media.Reconcile(d.Existing.Gallery, galleryURLs, p.Gallery)
	if err != nil {
		return err
	}
	thumb := media.ReconcileSingle(existingThumb, newThumb, keepThumb)

	clinic := &model.ClinicProfile{ThumbnailURL: thumb.First(), Gallery: gallery.FinalRefs}
	if err := c.updateVersioned(ctx, d, clinic, c.Clinics.UpdateMedia); err != nil {
		return err
	}
	for _, url := range uploaded {
		saga.Release(url)
	}

	orphans := append(append([]string(nil), thumb.ToDelete...), gallery.ToDelete...)
	if len(orphans) > 0 {
		c.Media.DeleteAssets(ctx, orphans)
	}

	details := c.detailsOf(d)
	details.Introduction = p.Introduction
	details.IntroductionEn = p.IntroductionEn
	details.SocialConsent = p.SocialConsent
	return c.saveDetails(ctx, details)
}

func (c *Coordinator) commitStaff(ctx context.Context, d *draft.Draft, req Request, saga *Saga) error {
	clinicID := d.ClinicID()
	desired := make([]staff.Desired, len(d.Pending.Doctors))
	for i, doc := range d.Pending.Doctors {
		desired[i] = staff.Desired{
			ID:          doc.ID,
			Name:        doc.Name,
			Bio:         doc.Bio,
			PortraitURL: doc.PortraitURL,
			Gender:      doc.Gender,
			IsChief:     doc.IsChief,
		}
	}

	positions := make([]int, 0, len(req.Portraits))
	for pos, asset := range req.Portraits {
		if pos < 0 || pos >= len(desired) {
			return apperrors.Validationf("portrait for unknown doctor #%d", pos+1)
		}
		if err := c.Media.ValidateAsset(asset); err != nil {
			return err
		}
		positions = append(positions, pos)
	}

	// Catch unknown ids and a second chief before anything is uploaded.
	if _, err := c.Staff.Plan(ctx, clinicID, desired); err != nil {
		return err
	}

	if len(positions) > 0 {
		sort.Ints(positions)
		assets := make([]media.Asset, len(positions))
		for i, pos := range positions {
			assets[i] = req.Portraits[pos]
		}
		urls, err := c.Media.UploadBatch(ctx, assets, media.DoctorPrefix(clinicID))
		if err != nil {
			return err
		}
		if err := c.track(ctx, saga, urls...); err != nil {
			return err
		}
		for i, pos := range positions {
			desired[pos].PortraitURL = urls[i]
		}
	}

	plan, err := c.Staff.Plan(ctx, clinicID, desired)
	if err != nil {
		return err
	}
	return c.Staff.Apply(ctx, clinicID, plan, saga)
}

func (c *Coordinator) commitTreatments(ctx context.Context, d *draft.Draft) error {
	p := &d.Pending
	codes := make([]int, len(p.Treatments))
	for i, t := range p.Treatments {
		codes[i] = t.Code
	}
	ids, err := c.Taxonomy.ResolveCodesToIDs(ctx, codes)
	if err != nil {
		return err
	}

	offerings := make([]*model.TreatmentOffering, 0, len(p.Treatments)+1)
	for _, t := range p.Treatments {
		id, ok := ids[t.Code]
		if !ok {
			continue
		}
		offerings = append(offerings, &model.TreatmentOffering{
			TreatmentID:   &id,
			OptionLabel:   t.OptionLabel,
			Price:         t.Price,
			DiscountPrice: t.DiscountPrice,
			PriceVisible:  t.PriceVisible,
		})
	}
	if notes := strings.TrimSpace(p.TreatmentNotes); notes != "" {
		offerings = append(offerings, &model.TreatmentOffering{MiscNotes: notes})
	}

	if err := c.Treatments.ReplaceOfferings(ctx, d.ClinicID(), offerings); err != nil {
		return apperrors.FromStore(fmt.Errorf("replace treatments: %w", err))
	}

	details := c.detailsOf(d)
	details.AvailableLanguages = append([]string(nil), p.Languages...)
	details.MiscNotes = p.MiscNotes
	return c.saveDetails(ctx, details)
}

// detailsOf returns the persisted details row as last loaded.
func (c *Coordinator) detailsOf(d *draft.Draft) *model.ClinicDetails {
	ex := d.Existing
	return &model.ClinicDetails{
		HospitalID:         d.ClinicID(),
		Introduction:       ex.Introduction,
		IntroductionEn:     ex.IntroductionEn,
		SocialConsent:      ex.SocialConsent,
		AvailableLanguages: append([]string(nil), ex.Languages...),
		MiscNotes:          ex.MiscNotes,
	}
}

func (c *Coordinator) saveDetails(ctx context.Context, details *model.ClinicDetails) error {
	if details.SocialConsent == "" {
		details.SocialConsent = model.ConsentUnset
	}
	err := c.Clinics.UpdateDetails(ctx, details)
	if errors.Is(err, repository.ErrNotFound) {
		err = c.Clinics.CreateDetails(ctx, details)
	}
	if err != nil {
		return apperrors.FromStore(fmt.Errorf("save clinic details: %w", err))
	}
	return nil
}

func (c *Coordinator) recordFeedback(ctx context.Context, d *draft.Draft, step int, text string) error {
	note := &model.FeedbackNote{HospitalID: d.ClinicID(), Step: step, Content: text}
	if err := c.Feedback.Create(ctx, note); err != nil {
		return apperrors.FromStore(fmt.Errorf("save feedback: %w", err))
	}
	c.emit(ctx, model.EventFeedbackCreated, model.FeedbackCreatedEvent{
		FeedbackID: note.ID,
		ClinicID:   note.HospitalID,
		ClinicName: d.Pending.Name,
		Step:       step,
		Content:    text,
		At:         note.CreatedAt,
	})
	return nil
}

// emit publishes best effort; the commit has already succeeded.
func (c *Coordinator) emit(ctx context.Context, eventType string, payload interface{}) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Emit(ctx, eventType, payload); err != nil {
		c.Logger.Warn("failed to publish event", "event_type", eventType, "error", err.Error())
	}
}
