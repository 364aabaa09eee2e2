package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type structValidator struct {
	v *validator.Validate
}

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var messages = map[string]string{
	"required":   "is required",
	"email":      "must be a valid email",
	"min":        "is too short",
	"max":        "is too long",
	"len":        "has the wrong length",
	"hhmm":       "must be a time in HH:MM format",
	"hourstatus": "must be one of OPEN, CLOSED, ASK",
	"latitude":   "must be a valid latitude",
	"longitude":  "must be a valid longitude",
	"gte":        "is too small",
	"lte":        "is too large",
}

func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || hhmm.MatchString(s)
	})
	_ = v.RegisterValidation("hourstatus", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "OPEN", "CLOSED", "ASK":
			return true
		}
		return false
	})

	return &structValidator{v: v}
}

// Validate returns a Validation AppError naming every offending field.
func (s *structValidator) Validate(obj interface{}) error {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Validation(err.Error())
	}

	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed %s", e.Tag())
		}
		parts = append(parts, fmt.Sprintf("%s %s", fieldPath(e.Namespace()), msg))
	}
	return apperrors.Validation(strings.Join(parts, "; "))
}

// fieldPath drops the root struct name from a namespace like "Req.hours[2].open".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
