package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput marks input the domain layer refuses to persist.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError names the field that failed and why. It unwraps to
// ErrInvalidInput so callers can branch without inspecting the type.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
