package writer

import (
	"fmt"
	"io"
	"os"
)

// FileWriter wraps an os.File for writing raw pixel files.
// It provides:
// - Space allocation tracking (via Allocator)
// - Write-at-address operations
// - Flush control
//
// Thread-safety: Not thread-safe. Caller must synchronize access.
type FileWriter struct {
	file      *os.File   // Underlying OS file
	path      string     // Path the file was created at
	allocator *Allocator // Space allocation tracker
}

// CreateMode specifies the file creation behavior.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating if it exists.
	// Equivalent to os.Create() behavior.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, fails if it exists.
	// Equivalent to os.O_CREATE | os.O_EXCL.
	ModeExclusive
)

// NewFileWriter creates a writer for a new raw pixel file opened for
// reading and writing with permission bits perm.
func NewFileWriter(filename string, mode CreateMode, perm os.FileMode) (*FileWriter, error) {
	var flags int
	switch mode {
	case ModeTruncate:
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ModeExclusive:
		flags = os.O_RDWR | os.O_CREATE | os.O_EXCL
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}

	//nolint:gosec // G304: path comes from the pixel store's resolver
	osFile, err := os.OpenFile(filename, flags, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &FileWriter{
		file:      osFile,
		path:      filename,
		allocator: NewAllocator(0),
	}, nil
}

// Allocate reserves a block of space at the end of the file and returns
// its address. The space is not written.
func (w *FileWriter) Allocate(size uint64) (uint64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	return w.allocator.Allocate(size)
}

// WriteAt writes data at a specific address in the file.
// Implements io.WriterAt interface.
func (w *FileWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	if len(data) == 0 {
		return 0, nil // Nothing to write
	}

	n, err := w.file.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at address %d failed: %w", offset, err)
	}

	if n != len(data) {
		return n, fmt.Errorf("incomplete write at address %d: wrote %d of %d bytes", offset, n, len(data))
	}

	return n, nil
}

// Append allocates len(data) bytes at the end of the file and writes data
// there. Returns the address where data was written.
func (w *FileWriter) Append(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("cannot write empty data")
	}

	addr, err := w.Allocate(uint64(len(data)))
	if err != nil {
		return 0, err
	}

	//nolint:gosec // G115: raw file addresses are bounded by int64 sizes
	if _, err := w.WriteAt(data, int64(addr)); err != nil {
		return 0, err
	}

	return addr, nil
}

// ReadAt reads data at a specific address.
// Implements io.ReaderAt interface for compatibility.
func (w *FileWriter) ReadAt(buf []byte, addr int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	return w.file.ReadAt(buf, addr)
}

// EndOfFile returns the current end-of-file address.
// This is where the next allocation would occur.
func (w *FileWriter) EndOfFile() uint64 {
	return w.allocator.EndOfFile()
}

// Flush ensures all writes are committed to disk.
func (w *FileWriter) Flush() error {
	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}

	return w.file.Sync()
}

// Close closes the underlying file.
// This does NOT automatically flush - call Flush() first if needed.
// It is safe to call Close multiple times.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil // Already closed
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// Name returns the path the writer was created with.
func (w *FileWriter) Name() string {
	return w.path
}

// Allocator returns the space allocator.
func (w *FileWriter) Allocator() *Allocator {
	return w.allocator
}

// Ensure FileWriter implements io.ReaderAt and io.WriterAt
var (
	_ io.ReaderAt = (*FileWriter)(nil)
	_ io.WriterAt = (*FileWriter)(nil)
)
