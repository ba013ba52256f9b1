package utils

import "fmt"

// PixelsError represents a structured pixel store error.
type PixelsError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *PixelsError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &PixelsError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *PixelsError) Unwrap() error {
	return e.Cause
}
