package pixels

import (
	"crypto/sha1" //nolint:gosec // G505: SHA-1 is the digest callers compare against
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scigolib/pixels/internal/deltavision"
	"github.com/scigolib/pixels/internal/utils"
)

var deltaVisionTypes = map[deltavision.Mode]PixelsType{
	deltavision.ModeUint8:   Uint8,
	deltavision.ModeInt16:   Int16,
	deltavision.ModeFloat32: Float,
	deltavision.ModeUint16:  Uint16,
	deltavision.ModeInt32:   Int32,
}

// DeltaVision is a read-only PixelBuffer over a DeltaVision original file.
// Regions are reassembled into canonical raw order and converted to
// ByteOrder, so callers cannot tell it apart from a raw buffer when reading.
type DeltaVision struct {
	geometry

	path   string
	file   *os.File
	header *deltavision.Header
}

// OpenDeltaVision opens the DeltaVision file at path as the backing of p.
// The header must agree with p on X, Y, pixel type and plane count.
func OpenDeltaVision(path string, p *Pixels) (*DeltaVision, error) {
	g, err := newGeometry(p)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: path comes from the original file registry
	f, err := os.Open(path)
	if err != nil {
		return nil, resourceError("open original file", p.ID, path, err)
	}
	h, err := deltavision.ReadHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, resourceError("read DeltaVision header", p.ID, path, err)
	}
	if err := checkDeltaVisionHeader(h, p); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &DeltaVision{geometry: g, path: path, file: f, header: h}, nil
}

func checkDeltaVisionHeader(h *deltavision.Header, p *Pixels) error {
	t, ok := deltaVisionTypes[h.Mode]
	if !ok {
		return fmt.Errorf("%w: DeltaVision mode %d", ErrUnsupportedPixelsType, h.Mode)
	}
	if t != p.Type {
		return fmt.Errorf("%w: DeltaVision file holds %v pixels, descriptor says %v",
			ErrUnsupportedPixelsType, t, p.Type)
	}
	switch {
	case int(h.SizeX) != p.SizeX:
		return outOfBounds("X", int(h.SizeX), p.SizeX+1)
	case int(h.SizeY) != p.SizeY:
		return outOfBounds("Y", int(h.SizeY), p.SizeY+1)
	case int64(h.Sections) != p.PlaneCount():
		return &DimensionsError{Dimension: "sections", Value: int64(h.Sections), Min: p.PlaneCount(), Max: p.PlaneCount() + 1}
	case h.SizeZ() != p.SizeZ || h.Waves() != p.SizeC || h.Times() != p.SizeT:
		return fmt.Errorf("%w: DeltaVision file is %dz x %dc x %dt, descriptor is %dz x %dc x %dt",
			ErrDimensionsOutOfBounds, h.SizeZ(), h.Waves(), h.Times(), p.SizeZ, p.SizeC, p.SizeT)
	}
	return nil
}

// Path returns the original file path.
func (d *DeltaVision) Path() string {
	return d.path
}

// Sequence returns the file's plane ordering.
func (d *DeltaVision) Sequence() deltavision.Sequence {
	return d.header.Sequence
}

// readPlaneInto fills dst with plane (z, c, t) converted to ByteOrder.
func (d *DeltaVision) readPlaneInto(op string, dst []byte, z, c, t int) error {
	n, err := d.file.ReadAt(dst, d.header.PlaneOffset(z, c, t))
	if n != len(dst) {
		if err == nil || errors.Is(err, io.EOF) {
			err = fmt.Errorf("short read of plane z=%d c=%d t=%d: %w", z, c, t, io.ErrUnexpectedEOF)
		}
		return resourceError(op, d.ID(), d.path, err)
	}
	if d.header.ByteOrder != ByteOrder {
		utils.SwapBytes(dst, d.header.Mode.BytesPerPixel())
	}
	return nil
}

// readPlanes reads the canonical range of planes starting at linear plane
// index first. Linear index i corresponds to z = i%Z, c = (i/Z)%C, t = i/(Z*C).
func (d *DeltaVision) readPlanes(op string, first, count int64) ([]byte, error) {
	planeSize := d.layout.planeSize
	out := make([]byte, count*planeSize)
	sz, sc := int64(d.pixels.SizeZ), int64(d.pixels.SizeC)
	for i := int64(0); i < count; i++ {
		idx := first + i
		z, c, t := int(idx%sz), int((idx/sz)%sc), int(idx/(sz*sc))
		if err := d.readPlaneInto(op, out[i*planeSize:(i+1)*planeSize], z, c, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Region reads size canonical bytes starting at canonical offset.
func (d *DeltaVision) Region(size, offset int64) ([]byte, error) {
	if err := d.checkRegion(offset, size); err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}
	planeSize := d.layout.planeSize
	first := offset / planeSize
	last := (offset + size - 1) / planeSize
	planes, err := d.readPlanes("read region", first, last-first+1)
	if err != nil {
		return nil, err
	}
	start := offset - first*planeSize
	out := make([]byte, size)
	copy(out, planes[start:start+size])
	return out, nil
}

// Row reads row y of plane (z, c, t).
func (d *DeltaVision) Row(y, z, c, t int) ([]byte, error) {
	offset, err := d.RowOffset(y, z, c, t)
	if err != nil {
		return nil, err
	}
	return d.Region(d.layout.rowSize, offset)
}

// Plane reads plane (z, c, t).
func (d *DeltaVision) Plane(z, c, t int) ([]byte, error) {
	if err := d.CheckBounds(z, c, t); err != nil {
		return nil, err
	}
	out := make([]byte, d.layout.planeSize)
	if err := d.readPlaneInto("read plane", out, z, c, t); err != nil {
		return nil, err
	}
	return out, nil
}

// Stack reads all Z planes of (c, t).
func (d *DeltaVision) Stack(c, t int) ([]byte, error) {
	if err := d.CheckBounds(0, c, t); err != nil {
		return nil, err
	}
	first := (int64(t)*int64(d.pixels.SizeC) + int64(c)) * int64(d.pixels.SizeZ)
	return d.readPlanes("read stack", first, int64(d.pixels.SizeZ))
}

// Timepoint reads all stacks of t.
func (d *DeltaVision) Timepoint(t int) ([]byte, error) {
	if err := d.CheckBounds(0, 0, t); err != nil {
		return nil, err
	}
	perTimepoint := int64(d.pixels.SizeZ) * int64(d.pixels.SizeC)
	return d.readPlanes("read timepoint", int64(t)*perTimepoint, perTimepoint)
}

// PlaneData reads plane (z, c, t) and wraps it for per-value access.
func (d *DeltaVision) PlaneData(z, c, t int) (*PixelData, error) {
	plane, err := d.Plane(z, c, t)
	if err != nil {
		return nil, err
	}
	return d.planeData(plane)
}

func (d *DeltaVision) readOnly(op string) error {
	if err := d.checkOpen(op); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s on DeltaVision file %s", ErrReadOnly, op, d.path)
}

// SetRegion always fails: original files are never modified.
func (d *DeltaVision) SetRegion(int64, []byte) error { return d.readOnly("write region") }

// SetRow always fails: original files are never modified.
func (d *DeltaVision) SetRow(int, int, int, int, []byte) error { return d.readOnly("write row") }

// SetPlane always fails: original files are never modified.
func (d *DeltaVision) SetPlane(int, int, int, []byte) error { return d.readOnly("write plane") }

// SetStack always fails: original files are never modified.
func (d *DeltaVision) SetStack(int, int, []byte) error { return d.readOnly("write stack") }

// SetTimepoint always fails: original files are never modified.
func (d *DeltaVision) SetTimepoint(int, []byte) error { return d.readOnly("write timepoint") }

// Digest returns the SHA-1 of the pixel set in canonical raw order, so a
// DeltaVision file and its raw conversion digest identically.
func (d *DeltaVision) Digest() ([]byte, error) {
	//nolint:gosec // G401: see import
	h := sha1.New()
	for t := 0; t < d.pixels.SizeT; t++ {
		tp, err := d.Timepoint(t)
		if err != nil {
			return nil, err
		}
		h.Write(tp)
	}
	return h.Sum(nil), nil
}

// Close releases the file handle. It is safe to call Close multiple times.
func (d *DeltaVision) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.file.Close(); err != nil {
		return resourceError("close", d.ID(), d.path, err)
	}
	return nil
}
