// Package validation wraps go-playground/validator with JSON field names and
// a flat error shape the HTTP layer can return as-is.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when input fails validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// New returns a validator that reports JSON names instead of Go field names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	UseJSONNames(v)
	return v
}

// UseJSONNames makes v report JSON names. It is also applied to the
// validator behind gin's binding.
func UseJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Struct validates s and converts any rule failures into *Error.
func Struct(v *validator.Validate, s any) error {
	return FromValidator(v.Struct(s))
}

// FromValidator converts validator.ValidationErrors into *Error. Other
// errors, including nil, are returned unchanged.
func FromValidator(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a UUID"
	case "url", "http_url":
		return "must be a URL"
	}
	return "failed " + fe.Tag() + " check"
}
