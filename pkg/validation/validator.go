package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New builds the validator used by the domain service. Error messages use
// JSON tag names so they read the same as the wire fields.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FirstMessage flattens a validator error into a single human-readable
// message, e.g. "email must be a valid email".
func FirstMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field() + " " + messageFor(fe)
	}
	return "invalid input"
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		if fe.Param() != "" {
			return "failed validation '" + fe.Tag() + "' with parameter '" + fe.Param() + "'"
		}
		return "failed validation '" + fe.Tag() + "'"
	}
}
