package models

import "strings"

// ValidationError aggregates every violation found during a validation
// pass. Callers receive the full list rather than the first failure.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// NewValidationError wraps a list of violations.
func NewValidationError(errs []string) *ValidationError {
	return &ValidationError{Errors: errs}
}
