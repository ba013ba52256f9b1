package utils

import (
	"fmt"
	"math"
)

// SafeMultiplyInt64 multiplies two non-negative int64 values, failing when the
// product does not fit in int64. File offsets are int64 for io.ReaderAt, so
// every size derived from a descriptor must stay below math.MaxInt64.
func SafeMultiplyInt64(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("negative operand: %d * %d", a, b)
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, fmt.Errorf("multiplication overflow: %d * %d exceeds int64 max", a, b)
	}
	return a * b, nil
}

// PackedSize returns the number of bytes needed to store count values of
// bitDepth bits each, rounding partial bytes up.
func PackedSize(count int64, bitDepth int) (int64, error) {
	if bitDepth <= 0 {
		return 0, fmt.Errorf("bit depth must be positive, got %d", bitDepth)
	}
	if bitDepth%8 == 0 {
		return SafeMultiplyInt64(count, int64(bitDepth/8))
	}

	bits, err := SafeMultiplyInt64(count, int64(bitDepth))
	if err != nil {
		return 0, err
	}
	return bits/8 + boolToInt64(bits%8 != 0), nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ValidateBufferSize validates that a buffer size is within reasonable limits.
// maxSize parameter allows different limits for different use cases.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}

	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}

// MaxRegionSize limits a single in-memory region (one plane, stack or
// timepoint materialized as a []byte) to what a Go slice can index.
const MaxRegionSize = math.MaxInt
