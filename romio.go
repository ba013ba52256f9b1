package pixels

import (
	"crypto/sha1" //nolint:gosec // G505: SHA-1 is the digest callers compare against, not a security primitive
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/scigolib/pixels/internal/utils"
)

// pixelFile is the part of *os.File a raw buffer does its I/O through.
type pixelFile interface {
	io.ReaderAt
	io.WriterAt
	Stat() (fs.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

// digestChunk bounds the memory used while hashing a pixel set.
const digestChunk = 1 << 20

// RomioPixelBuffer is a PixelBuffer over a headerless raw pixel file. The
// file is opened on first use; a missing file is created by the first write.
//
// A buffer starts unbound (no handle), is bound once file is set and is
// closed for good by Close.
type RomioPixelBuffer struct {
	geometry

	path     string
	perm     os.FileMode
	file     pixelFile
	writable bool
}

func newRomioPixelBuffer(path string, p *Pixels, perm os.FileMode) (*RomioPixelBuffer, error) {
	g, err := newGeometry(p)
	if err != nil {
		return nil, err
	}
	return &RomioPixelBuffer{
		geometry: g,
		path:     path,
		perm:     perm,
	}, nil
}

// Path returns the raw file path.
func (b *RomioPixelBuffer) Path() string {
	return b.path
}

// acquire returns the file handle, opening it on first use. Reads try
// read-write first and fall back to read-only; writes require read-write
// and create the file when missing.
func (b *RomioPixelBuffer) acquire(op string, forWrite bool) (pixelFile, error) {
	if err := b.checkOpen(op); err != nil {
		return nil, err
	}
	if b.file != nil && (b.writable || !forWrite) {
		return b.file, nil
	}

	flags := os.O_RDWR
	if forWrite {
		flags |= os.O_CREATE
	}
	//nolint:gosec // G304: path comes from the pixel store's resolver
	f, err := os.OpenFile(b.path, flags, b.perm)
	writable := err == nil
	if err != nil && !forWrite && errors.Is(err, fs.ErrPermission) {
		//nolint:gosec // G304: path comes from the pixel store's resolver
		f, err = os.Open(b.path)
	}
	if err != nil {
		return nil, resourceError(op, b.ID(), b.path, err)
	}

	if b.file != nil {
		_ = b.file.Close()
	}
	b.file = f
	b.writable = writable
	return f, nil
}

// Region reads size bytes starting at offset.
func (b *RomioPixelBuffer) Region(size, offset int64) ([]byte, error) {
	if err := b.checkRegion(offset, size); err != nil {
		return nil, err
	}
	return b.read("read region", offset, size)
}

func (b *RomioPixelBuffer) read(op string, offset, size int64) ([]byte, error) {
	f, err := b.acquire(op, false)
	if err != nil {
		return nil, err
	}
	if size > 0 {
		if err := utils.ValidateBufferSize(uint64(size), utils.MaxRegionSize, op); err != nil {
			return nil, resourceError(op, b.ID(), b.path, err)
		}
	}

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = fmt.Errorf("short read at offset %d: got %d of %d bytes: %w", offset, n, size, io.ErrUnexpectedEOF)
	}
	return nil, resourceError(op, b.ID(), b.path, err)
}

// Row reads row y of plane (z, c, t).
func (b *RomioPixelBuffer) Row(y, z, c, t int) ([]byte, error) {
	offset, err := b.RowOffset(y, z, c, t)
	if err != nil {
		return nil, err
	}
	return b.read("read row", offset, b.layout.rowSize)
}

// Plane reads plane (z, c, t).
func (b *RomioPixelBuffer) Plane(z, c, t int) ([]byte, error) {
	offset, err := b.PlaneOffset(z, c, t)
	if err != nil {
		return nil, err
	}
	return b.read("read plane", offset, b.layout.planeSize)
}

// Stack reads all Z planes of (c, t).
func (b *RomioPixelBuffer) Stack(c, t int) ([]byte, error) {
	offset, err := b.StackOffset(c, t)
	if err != nil {
		return nil, err
	}
	return b.read("read stack", offset, b.layout.stackSize)
}

// Timepoint reads all stacks of t.
func (b *RomioPixelBuffer) Timepoint(t int) ([]byte, error) {
	offset, err := b.TimepointOffset(t)
	if err != nil {
		return nil, err
	}
	return b.read("read timepoint", offset, b.layout.timepointSize)
}

// PlaneData reads plane (z, c, t) and wraps it for per-value access.
func (b *RomioPixelBuffer) PlaneData(z, c, t int) (*PixelData, error) {
	plane, err := b.Plane(z, c, t)
	if err != nil {
		return nil, err
	}
	return b.planeData(plane)
}

// SetRegion writes data starting at offset.
func (b *RomioPixelBuffer) SetRegion(offset int64, data []byte) error {
	if err := b.checkRegion(offset, int64(len(data))); err != nil {
		return err
	}
	return b.write("write region", offset, data)
}

// SetRow writes row y of plane (z, c, t).
func (b *RomioPixelBuffer) SetRow(y, z, c, t int, data []byte) error {
	offset, err := b.RowOffset(y, z, c, t)
	if err != nil {
		return err
	}
	if int64(len(data)) != b.layout.rowSize {
		return lengthMismatch(len(data), b.layout.rowSize)
	}
	return b.write("write row", offset, data)
}

// SetPlane writes plane (z, c, t). data must be exactly PlaneSize bytes.
func (b *RomioPixelBuffer) SetPlane(z, c, t int, data []byte) error {
	offset, err := b.PlaneOffset(z, c, t)
	if err != nil {
		return err
	}
	if int64(len(data)) != b.layout.planeSize {
		return lengthMismatch(len(data), b.layout.planeSize)
	}
	return b.write("write plane", offset, data)
}

// SetStack writes all Z planes of (c, t).
func (b *RomioPixelBuffer) SetStack(c, t int, data []byte) error {
	offset, err := b.StackOffset(c, t)
	if err != nil {
		return err
	}
	if int64(len(data)) != b.layout.stackSize {
		return lengthMismatch(len(data), b.layout.stackSize)
	}
	return b.write("write stack", offset, data)
}

// SetTimepoint writes all stacks of t.
func (b *RomioPixelBuffer) SetTimepoint(t int, data []byte) error {
	offset, err := b.TimepointOffset(t)
	if err != nil {
		return err
	}
	if int64(len(data)) != b.layout.timepointSize {
		return lengthMismatch(len(data), b.layout.timepointSize)
	}
	return b.write("write timepoint", offset, data)
}

// write applies data at offset and syncs. On failure the previous content of
// the region and the previous file length are restored before returning, so
// no partially written region is observable through this buffer.
func (b *RomioPixelBuffer) write(op string, offset int64, data []byte) error {
	f, err := b.acquire(op, true)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	fi, err := f.Stat()
	if err != nil {
		return resourceError(op, b.ID(), b.path, err)
	}
	prevSize := fi.Size()

	previous := utils.GetBuffer(len(data))
	defer utils.ReleaseBuffer(previous)
	kept, err := f.ReadAt(previous, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return resourceError(op, b.ID(), b.path, err)
	}

	n, err := f.WriteAt(data, offset)
	if err == nil && n != len(data) {
		err = fmt.Errorf("incomplete write at offset %d: wrote %d of %d bytes", offset, n, len(data))
	}
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if rbErr := rollback(f, previous[:kept], offset, prevSize); rbErr != nil {
			err = errors.Join(err, utils.WrapError("rollback failed", rbErr))
		}
		return resourceError(op, b.ID(), b.path, err)
	}
	return nil
}

func rollback(f pixelFile, previous []byte, offset, prevSize int64) error {
	if len(previous) > 0 {
		if _, err := f.WriteAt(previous, offset); err != nil {
			return err
		}
	}
	if fi, err := f.Stat(); err == nil && fi.Size() > prevSize {
		if err := f.Truncate(prevSize); err != nil {
			return err
		}
	}
	return f.Sync()
}

// Digest returns the SHA-1 of the whole pixel set.
func (b *RomioPixelBuffer) Digest() ([]byte, error) {
	f, err := b.acquire("digest", false)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G401: see import
	h := sha1.New()
	section := io.NewSectionReader(f, 0, b.layout.totalSize)
	n, err := io.CopyBuffer(h, section, make([]byte, digestChunk))
	if err != nil {
		return nil, resourceError("digest", b.ID(), b.path, err)
	}
	if n != b.layout.totalSize {
		return nil, resourceError("digest", b.ID(), b.path,
			fmt.Errorf("file holds %d of %d bytes: %w", n, b.layout.totalSize, io.ErrUnexpectedEOF))
	}
	return h.Sum(nil), nil
}

// Close syncs and releases the file handle. It is safe to call Close
// multiple times.
func (b *RomioPixelBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.file == nil {
		return nil
	}

	var syncErr error
	if b.writable {
		syncErr = b.file.Sync()
	}
	closeErr := b.file.Close()
	b.file = nil
	if err := errors.Join(syncErr, closeErr); err != nil {
		return resourceError("close", b.ID(), b.path, err)
	}
	return nil
}
