package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

type hour struct {
	Status string `json:"status" validate:"hourstatus"`
	Open   string `json:"open" validate:"hhmm"`
}

type payload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Hours []hour `json:"hours" validate:"dive"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&payload{Name: "Clinic", Email: "a@b.kr", Hours: []hour{{Status: "OPEN", Open: "09:30"}}})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&payload{Email: "nope", Hours: []hour{{Status: "LUNCH", Open: "25:00"}}})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	msg := apperrors.Message(err)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "hours[0].status must be one of OPEN, CLOSED, ASK")
	assert.Contains(t, msg, "hours[0].open must be a time in HH:MM format")
}
