package domain

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks client input errors.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for missing records.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state-conflict failures such as re-activating a batch.
	ErrConflict = errors.New("conflict")
)

// ValidationErrors aggregates the individual findings of a CSV validation
// pass so handlers can return the full list instead of the first failure.
type ValidationErrors struct {
	Message string
	Errors  []string
}

func NewValidationErrors(message string, errs []string) *ValidationErrors {
	return &ValidationErrors{Message: message, Errors: errs}
}

func (e *ValidationErrors) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationErrors) Unwrap() error { return ErrValidation }
