package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an original file id is not registered.
	ErrNotFound = errors.New("original file not found")

	// ErrStoreClosed is returned when trying to use a closed registry.
	ErrStoreClosed = errors.New("registry is closed")

	// ErrInvalidFile is returned for registrations missing required fields.
	ErrInvalidFile = errors.New("invalid original file")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("registry: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
