package pixels

import "fmt"

// geometry implements the dimensional half of the PixelBuffer contract:
// sizes, bounds checks and the canonical offset formula. Both buffer
// variants embed it so their offsets agree. Once closed, every method that
// can fail reports ErrIllegalState.
type geometry struct {
	pixels Pixels
	layout layout
	closed bool
}

func newGeometry(p *Pixels) (geometry, error) {
	l, err := computeLayout(p)
	if err != nil {
		return geometry{}, err
	}
	return geometry{pixels: *p, layout: l}, nil
}

// ID returns the pixels id.
func (g *geometry) ID() int64 { return g.pixels.ID }

// Pixels returns a copy of the descriptor.
func (g *geometry) Pixels() Pixels { return g.pixels }

// PlaneSize returns the size of one XY plane in bytes.
func (g *geometry) PlaneSize() int64 { return g.layout.planeSize }

// StackSize returns the size of all Z planes of one (C,T) in bytes.
func (g *geometry) StackSize() int64 { return g.layout.stackSize }

// TimepointSize returns the size of all stacks of one T in bytes.
func (g *geometry) TimepointSize() int64 { return g.layout.timepointSize }

// TotalSize returns the size of the whole pixel set in bytes.
func (g *geometry) TotalSize() int64 { return g.layout.totalSize }

func (g *geometry) checkOpen(op string) error {
	if g.closed {
		return illegalState(op, g.pixels.ID)
	}
	return nil
}

// RowSize returns the size of one row in bytes. Packed rows that do not
// start on a byte boundary cannot be addressed.
func (g *geometry) RowSize() (int64, error) {
	if err := g.checkOpen("row size"); err != nil {
		return 0, err
	}
	if g.layout.rowSize == 0 {
		return 0, fmt.Errorf("%w: rows of %d %v pixels are not byte-aligned",
			ErrUnsupportedPixelsType, g.pixels.SizeX, g.pixels.Type)
	}
	return g.layout.rowSize, nil
}

// CheckBounds validates a (z, c, t) coordinate.
func (g *geometry) CheckBounds(z, c, t int) error {
	if err := g.checkOpen("check bounds"); err != nil {
		return err
	}
	if z < 0 || z >= g.pixels.SizeZ {
		return outOfBounds("Z", z, g.pixels.SizeZ)
	}
	if c < 0 || c >= g.pixels.SizeC {
		return outOfBounds("C", c, g.pixels.SizeC)
	}
	if t < 0 || t >= g.pixels.SizeT {
		return outOfBounds("T", t, g.pixels.SizeT)
	}
	return nil
}

// PlaneOffset returns t*TimepointSize + c*StackSize + z*PlaneSize.
func (g *geometry) PlaneOffset(z, c, t int) (int64, error) {
	if err := g.CheckBounds(z, c, t); err != nil {
		return 0, err
	}
	return int64(t)*g.layout.timepointSize +
		int64(c)*g.layout.stackSize +
		int64(z)*g.layout.planeSize, nil
}

// StackOffset returns the offset of plane (0, c, t).
func (g *geometry) StackOffset(c, t int) (int64, error) {
	return g.PlaneOffset(0, c, t)
}

// TimepointOffset returns the offset of plane (0, 0, t).
func (g *geometry) TimepointOffset(t int) (int64, error) {
	return g.PlaneOffset(0, 0, t)
}

// RowOffset returns the offset of row y within plane (z, c, t).
func (g *geometry) RowOffset(y, z, c, t int) (int64, error) {
	rowSize, err := g.RowSize()
	if err != nil {
		return 0, err
	}
	if y < 0 || y >= g.pixels.SizeY {
		return 0, outOfBounds("Y", y, g.pixels.SizeY)
	}
	offset, err := g.PlaneOffset(z, c, t)
	if err != nil {
		return 0, err
	}
	return offset + int64(y)*rowSize, nil
}

// checkRegion validates an arbitrary [offset, offset+size) byte range.
func (g *geometry) checkRegion(offset, size int64) error {
	if err := g.checkOpen("check region"); err != nil {
		return err
	}
	if offset < 0 || offset > g.layout.totalSize {
		return &DimensionsError{Dimension: "offset", Value: offset, Min: 0, Max: g.layout.totalSize + 1}
	}
	if size < 0 || size > g.layout.totalSize-offset {
		return &DimensionsError{Dimension: "size", Value: size, Min: 0, Max: g.layout.totalSize - offset + 1}
	}
	return nil
}

// planeData wraps a plane's bytes in a PixelData.
func (g *geometry) planeData(plane []byte) (*PixelData, error) {
	if g.pixels.Type.IsPacked() {
		return NewBitPixelData(plane, int64(g.pixels.SizeX)*int64(g.pixels.SizeY))
	}
	return NewPixelData(g.pixels.Type, plane)
}
