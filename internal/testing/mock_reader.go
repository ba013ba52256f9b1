// Package testing provides test doubles for pixel store file access.
package testing

import (
	"errors"
	"io"
	"io/fs"
)

// ErrInjected is the default failure returned by FaultyReaderAt and
// FaultyFile.
var ErrInjected = errors.New("injected I/O failure")

// MockReaderAt serves reads from an in-memory byte slice and reports
// io.EOF on short reads, like *os.File.
type MockReaderAt struct {
	data []byte
}

// NewMockReaderAt creates a new mock reader with the given data.
func NewMockReaderAt(data []byte) *MockReaderAt {
	return &MockReaderAt{data: data}
}

// ReadAt implements io.ReaderAt.
func (m *MockReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n = copy(p, m.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

// FaultyReaderAt behaves like MockReaderAt until a read touches byte
// FailAt or beyond; that read returns the bytes before FailAt and Err.
type FaultyReaderAt struct {
	MockReaderAt
	FailAt int64
	Err    error
}

// NewFaultyReaderAt creates a reader over data that fails at failAt.
func NewFaultyReaderAt(data []byte, failAt int64) *FaultyReaderAt {
	return &FaultyReaderAt{MockReaderAt: MockReaderAt{data: data}, FailAt: failAt, Err: ErrInjected}
}

// ReadAt implements io.ReaderAt.
func (f *FaultyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) <= f.FailAt {
		return f.MockReaderAt.ReadAt(p, off)
	}
	if off >= f.FailAt {
		return 0, f.Err
	}
	n, _ := f.MockReaderAt.ReadAt(p[:f.FailAt-off], off)
	return n, f.Err
}

// File is the file handle surface FaultyFile wraps; *os.File satisfies it.
type File interface {
	io.ReaderAt
	io.WriterAt
	Stat() (fs.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

// FaultyFile passes every call through to File except the first write that
// touches byte FailAt or beyond. That write stores the bytes before FailAt
// and returns Err, leaving a torn region behind. Later writes succeed.
type FaultyFile struct {
	File
	FailAt int64
	Err    error

	failed bool
}

// NewFaultyFile wraps f so that the first write reaching failAt fails.
func NewFaultyFile(f File, failAt int64) *FaultyFile {
	return &FaultyFile{File: f, FailAt: failAt, Err: ErrInjected}
}

// WriteAt implements io.WriterAt.
func (f *FaultyFile) WriteAt(p []byte, off int64) (int, error) {
	if f.failed || off+int64(len(p)) <= f.FailAt {
		return f.File.WriteAt(p, off)
	}
	f.failed = true
	if off >= f.FailAt {
		return 0, f.Err
	}
	n, _ := f.File.WriteAt(p[:f.FailAt-off], off)
	return n, f.Err
}

// Failed reports whether the injected failure has fired.
func (f *FaultyFile) Failed() bool {
	return f.failed
}
