// Package memory implements the repository interfaces in process. It backs
// service and handler tests and lets them inject store failures.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/repository"
)

// DB holds every table. Repositories built from one DB share state.
type DB struct {
	mu            sync.Mutex
	operators     map[uuid.UUID]*model.Operator
	clinics       map[uuid.UUID]*model.ClinicProfile
	details       map[uuid.UUID]*model.ClinicDetails
	doctors       map[uuid.UUID]*model.Doctor
	hours         map[uuid.UUID][]*model.BusinessHour
	catalog       map[int]*model.Treatment
	offerings     map[uuid.UUID][]*model.TreatmentOffering
	feedback      []*model.FeedbackNote
	consultations []*model.Consultation
	legacySeq     int64
	failures      map[string]error
	calls         []string
}

func NewDB() *DB {
	return &DB{
		operators: make(map[uuid.UUID]*model.Operator),
		clinics:   make(map[uuid.UUID]*model.ClinicProfile),
		details:   make(map[uuid.UUID]*model.ClinicDetails),
		doctors:   make(map[uuid.UUID]*model.Doctor),
		hours:     make(map[uuid.UUID][]*model.BusinessHour),
		catalog:   make(map[int]*model.Treatment),
		offerings: make(map[uuid.UUID][]*model.TreatmentOffering),
		failures:  make(map[string]error),
	}
}

// FailOn makes the named operation (e.g. "clinics.UpdateMedia") return err
// until cleared with a nil err.
func (db *DB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// Calls lists the operations invoked so far, in order.
func (db *DB) Calls() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.calls...)
}

// enter records op and returns its injected failure. Callers hold db.mu.
func (db *DB) enter(op string) error {
	db.calls = append(db.calls, op)
	return db.failures[op]
}

// SeedCatalog adds catalog entries.
func (db *DB) SeedCatalog(treatments ...*model.Treatment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, t := range treatments {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		db.catalog[t.Code] = t
	}
}

func (db *DB) SeedConsultations(cs ...*model.Consultation) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.consultations = append(db.consultations, cs...)
}

func (db *DB) Clinic(id uuid.UUID) (model.ClinicProfile, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.clinics[id]
	if !ok {
		return model.ClinicProfile{}, false
	}
	return *c, true
}

func (db *DB) Details(id uuid.UUID) (model.ClinicDetails, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	d, ok := db.details[id]
	if !ok {
		return model.ClinicDetails{}, false
	}
	return *d, true
}

func (db *DB) Operator(id uuid.UUID) (model.Operator, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	o, ok := db.operators[id]
	if !ok {
		return model.Operator{}, false
	}
	return *o, true
}

func (db *DB) Feedback() []model.FeedbackNote {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.FeedbackNote, len(db.feedback))
	for i, f := range db.feedback {
		out[i] = *f
	}
	return out
}

// Operators

type operatorRepo struct{ db *DB }

func NewOperatorRepository(db *DB) repository.OperatorRepository { return &operatorRepo{db} }

func (r *operatorRepo) GetByExternalID(ctx context.Context, externalUserID string) (*model.Operator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("operators.GetByExternalID"); err != nil {
		return nil, err
	}
	for _, o := range r.db.operators {
		if o.ExternalUserID == externalUserID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *operatorRepo) Create(ctx context.Context, op *model.Operator) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("operators.Create"); err != nil {
		return err
	}
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	cp := *op
	r.db.operators[op.ID] = &cp
	return nil
}

func (r *operatorRepo) LinkHospital(ctx context.Context, operatorID, hospitalID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("operators.LinkHospital"); err != nil {
		return err
	}
	o, ok := r.db.operators[operatorID]
	if !ok {
		return repository.ErrNotFound
	}
	id := hospitalID
	o.HospitalID = &id
	o.IsActiveHospital = true
	return nil
}

// Clinics

type clinicRepo struct{ db *DB }

func NewClinicRepository(db *DB) repository.ClinicRepository { return &clinicRepo{db} }

func (r *clinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.ClinicProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("clinics.Get"); err != nil {
		return nil, err
	}
	c, ok := r.db.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Gallery = append([]string(nil), c.Gallery...)
	return &cp, nil
}

func (r *clinicRepo) GetDetails(ctx context.Context, hospitalID uuid.UUID) (*model.ClinicDetails, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("clinics.GetDetails"); err != nil {
		return nil, err
	}
	d, ok := r.db.details[hospitalID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	cp.AvailableLanguages = append([]string(nil), d.AvailableLanguages...)
	return &cp, nil
}

func (r *clinicRepo) Create(ctx context.Context, c *model.ClinicProfile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("clinics.Create"); err != nil {
		return err
	}
	if _, ok := r.db.clinics[c.ID]; ok {
		return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	r.db.legacySeq++
	c.LegacyID = r.db.legacySeq
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.db.clinics[c.ID] = &cp
	return nil
}

func (r *clinicRepo) CreateDetails(ctx context.Context, d *model.ClinicDetails) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("clinics.CreateDetails"); err != nil {
		return err
	}
	if _, ok := r.db.clinics[d.HospitalID]; !ok {
		return &pq.Error{Code: "23503", Message: "insert violates foreign key constraint"}
	}
	cp := *d
	r.db.details[d.HospitalID] = &cp
	return nil
}

func (r *clinicRepo) update(op string, c *model.ClinicProfile, apply func(stored *model.ClinicProfile)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter(op); err != nil {
		return err
	}
	stored, ok := r.db.clinics[c.ID]
	if !ok || stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	apply(stored)
	stored.Version++
	stored.UpdatedAt = time.Now()
	c.Version = stored.Version
	return nil
}

func (r *clinicRepo) UpdateBasicInfo(ctx context.Context, c *model.ClinicProfile) error {
	return r.update("clinics.UpdateBasicInfo", c, func(s *model.ClinicProfile) {
		s.Name, s.Email, s.Phone, s.MessagingHandles = c.Name, c.Email, c.Phone, c.MessagingHandles
	})
}

func (r *clinicRepo) UpdateAddress(ctx context.Context, c *model.ClinicProfile) error {
	return r.update("clinics.UpdateAddress", c, func(s *model.ClinicProfile) {
		s.Address, s.RegionCode = c.Address, c.RegionCode
	})
}

func (r *clinicRepo) UpdateMedia(ctx context.Context, c *model.ClinicProfile) error {
	return r.update("clinics.UpdateMedia", c, func(s *model.ClinicProfile) {
		s.ThumbnailURL = c.ThumbnailURL
		s.Gallery = append([]string(nil), c.Gallery...)
	})
}

func (r *clinicRepo) UpdateDetails(ctx context.Context, d *model.ClinicDetails) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("clinics.UpdateDetails"); err != nil {
		return err
	}
	if _, ok := r.db.details[d.HospitalID]; !ok {
		return repository.ErrNotFound
	}
	cp := *d
	cp.AvailableLanguages = append([]string(nil), d.AvailableLanguages...)
	r.db.details[d.HospitalID] = &cp
	return nil
}

// Doctors

type doctorRepo struct{ db *DB }

func NewDoctorRepository(db *DB) repository.DoctorRepository { return &doctorRepo{db} }

func (r *doctorRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Doctor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("doctors.ListByHospital"); err != nil {
		return nil, err
	}
	var out []*model.Doctor
	for _, d := range r.db.doctors {
		if d.HospitalID == hospitalID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *doctorRepo) Create(ctx context.Context, d *model.Doctor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("doctors.Create"); err != nil {
		return err
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	r.db.doctors[d.ID] = &cp
	return nil
}

func (r *doctorRepo) Update(ctx context.Context, d *model.Doctor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("doctors.Update"); err != nil {
		return err
	}
	stored, ok := r.db.doctors[d.ID]
	if !ok || stored.HospitalID != d.HospitalID {
		return repository.ErrNotFound
	}
	cp := *d
	r.db.doctors[d.ID] = &cp
	return nil
}

func (r *doctorRepo) Delete(ctx context.Context, hospitalID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("doctors.Delete"); err != nil {
		return err
	}
	if d, ok := r.db.doctors[id]; ok && d.HospitalID == hospitalID {
		delete(r.db.doctors, id)
	}
	return nil
}

// Business hours

type hourRepo struct{ db *DB }

func NewBusinessHourRepository(db *DB) repository.BusinessHourRepository { return &hourRepo{db} }

func (r *hourRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.BusinessHour, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("hours.ListByHospital"); err != nil {
		return nil, err
	}
	var out []*model.BusinessHour
	for _, h := range r.db.hours[hospitalID] {
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r *hourRepo) Create(ctx context.Context, hours []*model.BusinessHour) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("hours.Create"); err != nil {
		return err
	}
	for _, h := range hours {
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		for _, existing := range r.db.hours[h.HospitalID] {
			if existing.DayOfWeek == h.DayOfWeek {
				return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
			}
		}
	}
	for _, h := range hours {
		cp := *h
		r.db.hours[h.HospitalID] = append(r.db.hours[h.HospitalID], &cp)
	}
	return nil
}

func (r *hourRepo) Update(ctx context.Context, h *model.BusinessHour) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("hours.Update"); err != nil {
		return err
	}
	for _, existing := range r.db.hours[h.HospitalID] {
		if existing.DayOfWeek == h.DayOfWeek {
			existing.OpenTime, existing.CloseTime, existing.Status = h.OpenTime, h.CloseTime, h.Status
			return nil
		}
	}
	return repository.ErrNotFound
}

// Treatments

type treatmentRepo struct{ db *DB }

func NewTreatmentRepository(db *DB) repository.TreatmentRepository { return &treatmentRepo{db} }

func (r *treatmentRepo) FindByCodes(ctx context.Context, codes []int) ([]*model.Treatment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("treatments.FindByCodes"); err != nil {
		return nil, err
	}
	var out []*model.Treatment
	for _, c := range codes {
		if t, ok := r.db.catalog[c]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *treatmentRepo) ListOfferings(ctx context.Context, hospitalID uuid.UUID) ([]*model.TreatmentOffering, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("treatments.ListOfferings"); err != nil {
		return nil, err
	}
	var out []*model.TreatmentOffering
	for _, o := range r.db.offerings[hospitalID] {
		cp := *o
		if o.TreatmentID != nil {
			for code, t := range r.db.catalog {
				if t.ID == *o.TreatmentID {
					c := code
					cp.Code = &c
				}
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (r *treatmentRepo) ReplaceOfferings(ctx context.Context, hospitalID uuid.UUID, offerings []*model.TreatmentOffering) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("treatments.ReplaceOfferings"); err != nil {
		return err
	}
	rows := make([]*model.TreatmentOffering, 0, len(offerings))
	for _, o := range offerings {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.HospitalID = hospitalID
		cp := *o
		rows = append(rows, &cp)
	}
	r.db.offerings[hospitalID] = rows
	return nil
}

// Feedback

type feedbackRepo struct{ db *DB }

func NewFeedbackRepository(db *DB) repository.FeedbackRepository { return &feedbackRepo{db} }

func (r *feedbackRepo) Create(ctx context.Context, note *model.FeedbackNote) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("feedback.Create"); err != nil {
		return err
	}
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	note.CreatedAt = time.Now()
	cp := *note
	r.db.feedback = append(r.db.feedback, &cp)
	return nil
}

func (r *feedbackRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.FeedbackNote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.FeedbackNote
	for _, f := range r.db.feedback {
		if f.HospitalID == hospitalID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Consultations

type consultationRepo struct{ db *DB }

func NewConsultationRepository(db *DB) repository.ConsultationRepository {
	return &consultationRepo{db}
}

func (r *consultationRepo) List(ctx context.Context, f *model.ConsultationFilters) ([]*model.Consultation, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.enter("consultations.List"); err != nil {
		return nil, 0, err
	}
	var matched []*model.Consultation
	for _, c := range r.db.consultations {
		if f.HospitalID != uuid.Nil && c.HospitalID != f.HospitalID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit()
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
