// Package utils holds request validation helpers shared by the HTTP and
// application layers.
package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/credence/pkg/errors"
)

// defaultValidator holds the singleton instance of the validator.
var defaultValidator *validator.Validate

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func init() {
	defaultValidator = validator.New()
	// Register custom validation functions
	_ = defaultValidator.RegisterValidation("username", validateUsername)
}

// ValidateStruct validates a struct using the default validator. Field
// problems are attached as metadata to an ErrInvalidRequest; the client sees
// only the generic description.
func ValidateStruct(s interface{}) error {
	if err := defaultValidator.Struct(s); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.ErrInvalidRequest.WithCause(err)
		}
		details := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			details[toSnakeCase(fe.Field())] = formatValidationError(fe)
		}
		return errors.ErrInvalidRequest.WithMessage("request validation failed").
			WithMetadata("fields", details)
	}
	return nil
}

// DecodeStrict decodes a single JSON object from r into dst. Unknown fields,
// trailing data and empty bodies are ErrInvalidRequest, which keeps clients
// from mass-assigning columns such as id or created_at.
func DecodeStrict(r io.Reader, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return errors.ErrInvalidRequest.WithCause(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.ErrInvalidRequest.WithMessage("empty request body")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.ErrInvalidRequest.WithMessage("malformed request body").WithCause(err)
	}
	if dec.More() {
		return errors.ErrInvalidRequest.WithMessage("trailing data after request body")
	}
	return ValidateStruct(dst)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "username":
		return "may contain letters, digits, '.', '-' and '_' only"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

// toSnakeCase converts a string from CamelCase to snake_case.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}
