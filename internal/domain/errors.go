package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrAlreadyProcessed         = fmt.Errorf("booking not found or already processed: %w", ErrNotFound)
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrConflict                 = errors.New("conflict")
	ErrInFlight                 = fmt.Errorf("idempotency key in use: %w", ErrConflict)
	ErrTimeout                  = errors.New("store deadline exceeded")
	ErrUnavailable              = errors.New("store unavailable")
)

// ValidationError names the first request field that violated the contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
