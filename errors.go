package pixels

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package matches exactly one
// of these through errors.Is.
var (
	// ErrDimensionsOutOfBounds is returned when a coordinate or length
	// argument falls outside the descriptor's valid range.
	ErrDimensionsOutOfBounds = errors.New("dimensions out of bounds")

	// ErrIndexOutOfBounds is returned when a pixel index falls outside the
	// region wrapped by a PixelData.
	ErrIndexOutOfBounds = errors.New("pixel index out of bounds")

	// ErrUnsupportedPixelsType is returned for a pixel type missing from the
	// bit-depth table.
	ErrUnsupportedPixelsType = errors.New("unsupported pixels type")

	// ErrResource is returned for I/O failures on backing files.
	ErrResource = errors.New("resource error")

	// ErrIllegalState is returned when a closed buffer is used.
	ErrIllegalState = errors.New("illegal state")

	// ErrReadOnly is returned when writing through a buffer backed by a
	// vendor original file.
	ErrReadOnly = errors.New("pixel buffer is read-only")
)

// DimensionsError reports a single out-of-range coordinate or length.
type DimensionsError struct {
	Dimension string // "Z", "C", "T", "Y", "length", ...
	Value     int64
	Min       int64 // inclusive
	Max       int64 // exclusive
}

// Error implements the error interface.
func (e *DimensionsError) Error() string {
	if e.Dimension == "length" {
		return fmt.Sprintf("%v: length %d does not match expected %d", ErrDimensionsOutOfBounds, e.Value, e.Min)
	}
	return fmt.Sprintf("%v: %s '%d' outside of range [%d, %d)", ErrDimensionsOutOfBounds, e.Dimension, e.Value, e.Min, e.Max)
}

// Unwrap returns ErrDimensionsOutOfBounds.
func (e *DimensionsError) Unwrap() error {
	return ErrDimensionsOutOfBounds
}

func outOfBounds(dimension string, value, size int) error {
	return &DimensionsError{Dimension: dimension, Value: int64(value), Min: 0, Max: int64(size)}
}

func lengthMismatch(got int, want int64) error {
	return &DimensionsError{Dimension: "length", Value: int64(got), Min: want, Max: want + 1}
}

// IndexError reports a pixel index outside a PixelData region.
type IndexError struct {
	Index int64
	Len   int64
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%v: index %d outside of range [0, %d)", ErrIndexOutOfBounds, e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfBounds.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfBounds
}

// ResourceError reports an I/O failure on a backing file. It is never
// retried; the offending path and pixels id are carried for diagnosis.
type ResourceError struct {
	Op   string
	ID   int64
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("%v: %s pixels %d (%s): %v", ErrResource, e.Op, e.ID, e.Path, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrResource) hold for every ResourceError.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResource
}

func resourceError(op string, id int64, path string, err error) error {
	return &ResourceError{Op: op, ID: id, Path: path, Err: err}
}

func illegalState(op string, id int64) error {
	return fmt.Errorf("%w: %s on closed pixel buffer %d", ErrIllegalState, op, id)
}
