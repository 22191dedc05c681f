// Package validation checks the structure of application requests before
// they reach the domain. Business rules such as quantity bounds stay in
// the domain so that they surface with their own error codes.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator, configured to report json field names
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// FieldError describes one failed field
type FieldError struct {
	Field   string
	Message string
}

// Struct validates req and returns an INVALID_INPUT domain error naming the
// first failed field. Other validator failures are returned unchanged.
func Struct(req any) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}
	details := Details(err)
	if len(details) == 0 {
		return err
	}
	return shared.NewDomainError(shared.CodeInvalidInput,
		fmt.Sprintf("%s: %s", details[0].Field, details[0].Message))
}

// Details lists every failed field of a validator error
func Details(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, FieldError{
			Field:   e.Field(),
			Message: message(e),
		})
	}
	return details
}

// message returns a human-readable validation message
func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	case "numeric":
		return "Must be numeric"
	case "alphanum":
		return "Must be alphanumeric"
	case "e164":
		return "Must be a phone number in E.164 format"
	case "dive":
		return "Invalid element"
	default:
		return "Invalid value"
	}
}
