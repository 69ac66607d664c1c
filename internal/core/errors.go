package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("category required for expenses")
	ErrUnknownCategory = errors.New("unknown expense category")
	ErrIndexOutOfRange = errors.New("transaction index out of range")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid transaction date")
	ErrNegativeValue   = errors.New("value must be a finite number >= 0")
	ErrMissingEmail    = errors.New("email is required")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrMissingFields   = errors.New("missing required fields")

	// ErrNotFound is returned when no profile exists for a key.
	ErrNotFound = errors.New("user not found")
)

// ValidationError reports a bad or missing field in client input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
