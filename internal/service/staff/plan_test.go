package staff

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

func doctor(hospitalID uuid.UUID, name, portrait string) *model.Doctor {
	d := &model.Doctor{HospitalID: hospitalID, Name: name, PortraitURL: portrait}
	d.ID = uuid.New()
	return d
}

func idOf(d *model.Doctor) *uuid.UUID {
	id := d.ID
	return &id
}

func TestBuildPlan_IdentityMatching(t *testing.T) {
	hospitalID := uuid.New()
	kim := doctor(hospitalID, "Dr. Kim", "https://cdn/kim.png")

	plan, err := BuildPlan(hospitalID, []*model.Doctor{kim}, []Desired{
		{ID: idOf(kim), Name: "Dr. Kim", PortraitURL: "https://cdn/kim.png"},
		{Name: "Dr. Lee"},
	})

	require.NoError(t, err)
	require.Len(t, plan.ToUpdate, 1)
	require.Len(t, plan.ToInsert, 1)
	assert.Empty(t, plan.ToDelete)
	assert.Empty(t, plan.PortraitsToDelete)
	assert.Equal(t, kim.ID, plan.ToUpdate[0].ID)
	assert.Equal(t, uuid.Nil, plan.ToInsert[0].ID)
	assert.Equal(t, "Dr. Lee", plan.ToInsert[0].Name)
	assert.Equal(t, 1, plan.ToInsert[0].DisplayOrder)
	assert.Equal(t, model.DefaultPortraitMale, plan.ToInsert[0].PortraitURL)
}

func TestBuildPlan_NewClinicSingleDoctor(t *testing.T) {
	plan, err := BuildPlan(uuid.New(), nil, []Desired{{Name: "Dr. X"}})

	require.NoError(t, err)
	assert.Len(t, plan.ToInsert, 1)
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	hospitalID := uuid.New()
	a := doctor(hospitalID, "A", "https://cdn/a.png")
	b := doctor(hospitalID, "B", model.DefaultPortraitFemale)
	existing := []*model.Doctor{a, b}
	desired := []Desired{{ID: idOf(a), Name: "A", PortraitURL: "https://cdn/a2.png"}, {Name: "C"}}

	first, err := BuildPlan(hospitalID, existing, desired)
	require.NoError(t, err)
	second, err := BuildPlan(hospitalID, existing, desired)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPlan_PortraitDeletion(t *testing.T) {
	hospitalID := uuid.New()
	changed := doctor(hospitalID, "Changed", "https://cdn/old.png")
	fromDefault := doctor(hospitalID, "FromDefault", model.DefaultPortraitMale)
	removed := doctor(hospitalID, "Removed", "https://cdn/removed.png")
	removedDefault := doctor(hospitalID, "RemovedDefault", model.DefaultPortraitFemale)
	same := doctor(hospitalID, "Same", "https://cdn/same.png")

	plan, err := BuildPlan(hospitalID,
		[]*model.Doctor{changed, fromDefault, removed, removedDefault, same},
		[]Desired{
			{ID: idOf(changed), Name: "Changed", PortraitURL: "https://cdn/new.png"},
			{ID: idOf(fromDefault), Name: "FromDefault", PortraitURL: "https://cdn/upload.png"},
			{ID: idOf(same), Name: "Same", PortraitURL: "https://cdn/same.png"},
		})

	require.NoError(t, err)
	assert.Len(t, plan.ToUpdate, 3)
	require.Len(t, plan.ToDelete, 2)
	assert.Equal(t, removed.ID, plan.ToDelete[0].ID)
	assert.Equal(t, removedDefault.ID, plan.ToDelete[1].ID)
	assert.Equal(t, []string{"https://cdn/old.png", "https://cdn/removed.png"}, plan.PortraitsToDelete)
}

func TestBuildPlan_UnknownID(t *testing.T) {
	ghost := uuid.New()

	_, err := BuildPlan(uuid.New(), nil, []Desired{{ID: &ghost, Name: "Ghost"}})

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestBuildPlan_DuplicateID(t *testing.T) {
	hospitalID := uuid.New()
	a := doctor(hospitalID, "A", "")

	_, err := BuildPlan(hospitalID, []*model.Doctor{a}, []Desired{{ID: idOf(a), Name: "A"}, {ID: idOf(a), Name: "A again"}})

	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestBuildPlan_SingleChief(t *testing.T) {
	_, err := BuildPlan(uuid.New(), nil, []Desired{{Name: "A", IsChief: true}, {Name: "B", IsChief: true}})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	plan, err := BuildPlan(uuid.New(), nil, []Desired{{Name: "A", IsChief: true}, {Name: "B"}})
	require.NoError(t, err)
	assert.True(t, plan.ToInsert[0].IsChief)
}

func TestInferGender(t *testing.T) {
	assert.Equal(t, GenderFemale, InferGender("Dr. Park", "female"))
	assert.Equal(t, GenderMale, InferGender("Ms. Park", "male"))
	assert.Equal(t, GenderFemale, InferGender("Ms. Park", ""))
	assert.Equal(t, GenderFemale, InferGender("mrs Choi", ""))
	assert.Equal(t, GenderMale, InferGender("Dr. Park", ""))
	assert.Equal(t, GenderMale, InferGender("", "unknown"))

	assert.Equal(t, model.DefaultPortraitFemale, DefaultPortrait(GenderFemale))
	assert.Equal(t, model.DefaultPortraitMale, DefaultPortrait(GenderMale))
}
