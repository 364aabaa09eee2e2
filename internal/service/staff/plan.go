package staff

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/model"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Desired is one staff member as the operator wants it saved. ID is nil for
// entries added in the current session.
type Desired struct {
	ID          *uuid.UUID
	Name        string
	Bio         string
	PortraitURL string
	Gender      string
	IsChief     bool
}

// Plan is the set of writes that moves the persisted staff list to the
// desired one. Inserts carry no id; one is assigned when the row is written.
type Plan struct {
	ToInsert          []*model.Doctor
	ToUpdate          []*model.Doctor
	ToDelete          []*model.Doctor
	PortraitsToDelete []string
}

func (p Plan) Empty() bool {
	return len(p.ToInsert) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// BuildPlan matches desired against existing by persisted id. The result is
// a pure function of its inputs.
func BuildPlan(hospitalID uuid.UUID, existing []*model.Doctor, desired []Desired) (Plan, error) {
	if err := checkChief(desired); err != nil {
		return Plan{}, err
	}

	byID := make(map[uuid.UUID]*model.Doctor, len(existing))
	for _, d := range existing {
		byID[d.ID] = d
	}

	var plan Plan
	matched := make(map[uuid.UUID]bool, len(desired))
	for i, want := range desired {
		row := &model.Doctor{
			HospitalID:   hospitalID,
			Name:         strings.TrimSpace(want.Name),
			Bio:          want.Bio,
			PortraitURL:  portraitFor(want),
			IsChief:      want.IsChief,
			DisplayOrder: i,
		}

		if want.ID == nil {
			plan.ToInsert = append(plan.ToInsert, row)
			continue
		}

		old, ok := byID[*want.ID]
		if !ok {
			return Plan{}, apperrors.Validationf("unknown doctor id %s", *want.ID)
		}
		if matched[old.ID] {
			return Plan{}, apperrors.Validationf("doctor %s listed twice", old.ID)
		}
		matched[old.ID] = true

		row.ID = old.ID
		row.CreatedAt = old.CreatedAt
		plan.ToUpdate = append(plan.ToUpdate, row)
		if old.PortraitURL != row.PortraitURL && deletable(old.PortraitURL) {
			plan.PortraitsToDelete = append(plan.PortraitsToDelete, old.PortraitURL)
		}
	}

	for _, old := range existing {
		if matched[old.ID] {
			continue
		}
		plan.ToDelete = append(plan.ToDelete, old)
		if deletable(old.PortraitURL) {
			plan.PortraitsToDelete = append(plan.PortraitsToDelete, old.PortraitURL)
		}
	}
	return plan, nil
}

func checkChief(desired []Desired) error {
	chiefs := 0
	for _, d := range desired {
		if d.IsChief {
			chiefs++
		}
	}
	if chiefs > 1 {
		return apperrors.Validation("only one doctor can be marked as chief")
	}
	return nil
}

func deletable(url string) bool {
	return url != "" && !model.IsDefaultPortrait(url)
}

func portraitFor(d Desired) string {
	if d.PortraitURL != "" {
		return d.PortraitURL
	}
	return DefaultPortrait(InferGender(d.Name, d.Gender))
}

// InferGender picks the gender tag for a built-in portrait. An explicit hint
// wins; otherwise a female honorific in the name decides, defaulting to male.
func InferGender(name, hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"mrs.", "mrs ", "ms.", "ms ", "miss "} {
		if strings.HasPrefix(lower, prefix) {
			return GenderFemale
		}
	}
	return GenderMale
}

func DefaultPortrait(gender string) string {
	if gender == GenderFemale {
		return model.DefaultPortraitFemale
	}
	return model.DefaultPortraitMale
}
