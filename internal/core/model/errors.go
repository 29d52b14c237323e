package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the error kind for malformed transform input. Every
// validation failure wraps it.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes which column and row failed validation.
// Index is -1 when the failure is not tied to a single row.
type InvalidInputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s[%d]: %s", e.Field, e.Index, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInvalidInput builds an InvalidInputError.
func NewInvalidInput(field string, index int, format string, args ...any) error {
	return &InvalidInputError{
		Field:  field,
		Index:  index,
		Reason: fmt.Sprintf(format, args...),
	}
}
