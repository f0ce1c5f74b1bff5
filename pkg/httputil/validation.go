package httputil

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/medflow/report-explainer/pkg/errors"
)

var validate = newValidator()

// newValidator reports fields by their json name so error details match
// what the client sent
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates a struct using go-playground/validator
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.BadRequest(err.Error())
		}

		details := make(map[string]string)
		for _, e := range validationErrors {
			details[e.Field()] = FormatValidationError(e)
		}

		return errors.Validation(details)
	}
	return nil
}

// FormatValidationError renders a field error as a short human message
func FormatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return "this field is required"
	case "excluded_with":
		return "must not be combined with " + e.Param()
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "invalid value"
	}
}
