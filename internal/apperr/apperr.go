// Package apperr defines the error taxonomy shared by the ingestion
// pipeline, the stores, and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid marks request payloads that failed validation.
	ErrInvalid = errors.New("invalid")
	// ErrNotFound marks lookups by id that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks writes rejected by a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Validation builds a ValidationError for a field.
func Validation(field, message string) error {
	return ValidationError{Field: field, Message: message}
}
