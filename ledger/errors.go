package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations. Use with errors.Is().
var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned on uniqueness violations (duplicate username).
	ErrConflict = errors.New("record conflict")

	// ErrInvalid is returned when a record fails validation at the storage
	// boundary. Wrapped by ValidationError.
	ErrInvalid = errors.New("invalid record")

	// ErrStorage is returned when the underlying store fails.
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Entity string // "user", "contract", "payment"
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: field %s %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }
