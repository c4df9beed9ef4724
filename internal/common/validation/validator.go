// Package validation checks inbound request payloads with go-playground/validator and turns
// failures into validation AppErrors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"cache-mate/internal/common/errors"
)

// MaxKeyLength bounds set names and entry keys
const MaxKeyLength = 1024

// FieldError is one failed rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Validator wraps a configured validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that reports JSON field names and knows the cache rules
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	registerCacheValidators(v)

	return &Validator{validate: v}
}

// Struct validates s by its struct tags
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return format(err)
	}
	return nil
}

// Var validates a single value against tag
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return format(err)
	}
	return nil
}

// Key checks a set name or entry key taken from a request path
func (v *Validator) Key(name, value string) error {
	if err := v.validate.Var(value, "cache_key"); err != nil {
		return errors.ValidationError(fmt.Sprintf("%s must be non-empty printable text of at most %d bytes", name, MaxKeyLength)).
			WithContext("field", name)
	}
	return nil
}

// Details extracts per-field failures from an error returned by Struct or Var
func Details(err error) []FieldError {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	details, _ := appErr.Context["fields"].([]FieldError)
	return details
}

func format(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.ValidationError(err.Error())
	}

	details := make([]FieldError, 0, len(fieldErrs))
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := message(fe)
		details = append(details, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: msg,
		})
		messages = append(messages, msg)
	}

	text := messages[0]
	if len(messages) > 1 {
		text = "validation failed: " + strings.Join(messages, "; ")
	}
	return errors.ValidationError(text).WithContext("fields", details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must have at least %s items", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must have at most %s items", fe.Field(), fe.Param())
	case "cache_key":
		return fmt.Sprintf("field '%s' must be a non-empty printable key", fe.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag())
	}
}

func registerCacheValidators(v *validator.Validate) {
	_ = v.RegisterValidation("cache_key", func(fl validator.FieldLevel) bool {
		return validKey(fl.Field().String())
	})
}

func validKey(s string) bool {
	if strings.TrimSpace(s) == "" || len(s) > MaxKeyLength {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
