package pixels

import (
	"fmt"

	"github.com/scigolib/pixels/internal/utils"
)

// Pixels describes one 5-D (X,Y,Z,C,T) pixel set. It is treated as
// immutable once handed to a PixelsService.
type Pixels struct {
	ID    int64
	SizeX int
	SizeY int
	SizeZ int
	SizeC int
	SizeT int
	Type  PixelsType
}

// Validate checks that every size is at least one and that the type is known.
func (p *Pixels) Validate() error {
	if p.ID < 0 {
		return fmt.Errorf("%w: negative pixels id %d", ErrDimensionsOutOfBounds, p.ID)
	}
	for _, d := range []struct {
		name string
		size int
	}{
		{"SizeX", p.SizeX}, {"SizeY", p.SizeY}, {"SizeZ", p.SizeZ}, {"SizeC", p.SizeC}, {"SizeT", p.SizeT},
	} {
		if d.size < 1 {
			return fmt.Errorf("%w: %s must be >= 1, got %d", ErrDimensionsOutOfBounds, d.name, d.size)
		}
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedPixelsType, p.Type)
	}
	return nil
}

// layout holds the derived sizes of a descriptor. All values are int64 so
// volumes beyond 2^31 bytes address correctly.
type layout struct {
	rowSize       int64 // 0 when rows are not byte-addressable
	planeSize     int64
	stackSize     int64
	timepointSize int64
	totalSize     int64
}

func computeLayout(p *Pixels) (layout, error) {
	if err := p.Validate(); err != nil {
		return layout{}, err
	}
	depth := MustBitDepth(p.Type)

	var l layout
	var err error
	pixelsPerPlane, err := utils.SafeMultiplyInt64(int64(p.SizeX), int64(p.SizeY))
	if err != nil {
		return layout{}, utils.WrapError("plane size", err)
	}
	if l.planeSize, err = utils.PackedSize(pixelsPerPlane, depth); err != nil {
		return layout{}, utils.WrapError("plane size", err)
	}
	if l.stackSize, err = utils.SafeMultiplyInt64(l.planeSize, int64(p.SizeZ)); err != nil {
		return layout{}, utils.WrapError("stack size", err)
	}
	if l.timepointSize, err = utils.SafeMultiplyInt64(l.stackSize, int64(p.SizeC)); err != nil {
		return layout{}, utils.WrapError("timepoint size", err)
	}
	if l.totalSize, err = utils.SafeMultiplyInt64(l.timepointSize, int64(p.SizeT)); err != nil {
		return layout{}, utils.WrapError("total size", err)
	}

	// Packed rows only start on a byte boundary when the row width is a
	// whole number of bytes.
	if depth%8 == 0 || (p.SizeX*depth)%8 == 0 {
		l.rowSize, _ = utils.PackedSize(int64(p.SizeX), depth)
	}
	return l, nil
}

// PlaneCount returns SizeZ*SizeC*SizeT.
func (p *Pixels) PlaneCount() int64 {
	return int64(p.SizeZ) * int64(p.SizeC) * int64(p.SizeT)
}

// String returns a compact description used in logs and CLI output.
func (p *Pixels) String() string {
	return fmt.Sprintf("Pixels(id=%d, %dx%dx%dx%dx%d, %v)", p.ID, p.SizeX, p.SizeY, p.SizeZ, p.SizeC, p.SizeT, p.Type)
}
