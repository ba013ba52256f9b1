// Package writer provides raw pixel file writing infrastructure.
//
// The Allocator hands out consecutive regions of a headerless raw pixel
// file. Raw files are written front to back during initialization, so the
// strategy is pure end-of-file allocation with no reuse.
package writer

import "fmt"

// Allocator manages sequential space allocation in a raw pixel file.
//
// Strategy:
//   - End-of-file allocation: every region starts where the previous ended
//   - No freed space reuse and no alignment
//   - Regions never overlap, so only the running end and count are tracked
//
// Thread Safety:
//   - NOT thread-safe: Use external synchronization if needed
type Allocator struct {
	start      uint64 // First allocatable address
	nextOffset uint64 // Next available address (end-of-file)
	count      uint64 // Number of regions allocated
}

// NewAllocator creates a space allocator starting at initialOffset.
// Raw pixel files carry no header, so callers normally pass 0.
func NewAllocator(initialOffset uint64) *Allocator {
	return &Allocator{
		start:      initialOffset,
		nextOffset: initialOffset,
	}
}

// Allocate reserves size bytes at the end of the file and returns the
// address of the region.
//
// Errors:
//   - "cannot allocate zero bytes": Size must be greater than 0
//   - overflow when the region would run past the uint64 address space
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("cannot allocate zero bytes")
	}

	addr := a.nextOffset
	if addr+size < addr {
		return 0, fmt.Errorf("allocation of %d bytes at %d overflows address space", size, addr)
	}

	a.nextOffset = addr + size
	a.count++

	return addr, nil
}

// EndOfFile returns the current end-of-file address.
// This is where the next allocation would occur.
func (a *Allocator) EndOfFile() uint64 {
	return a.nextOffset
}

// Count returns the number of regions allocated so far.
func (a *Allocator) Count() uint64 {
	return a.count
}

// TotalAllocated returns the number of bytes allocated so far.
func (a *Allocator) TotalAllocated() uint64 {
	return a.nextOffset - a.start
}
