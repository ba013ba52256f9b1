// Package pixels stores multi-dimensional scientific image pixel arrays as
// flat, headerless binary files addressed by a deterministic offset scheme.
//
// A PixelsService chooses the backing of a pixel set: a raw file in the
// proprietary store, or a vendor original file (DeltaVision) already on disk
// when no raw file exists. Either way callers get a PixelBuffer that reads
// and writes planes, stacks, timepoints and rows at 64-bit offsets, and
// PixelData gives per-value access to the returned regions.
//
// Example:
//
//	svc, err := pixels.NewPixelsService("/data/store")
//	if err != nil {
//	    return err
//	}
//	buf, err := svc.CreatePixelBuffer(&pixels.Pixels{
//	    ID: 1, SizeX: 512, SizeY: 512, SizeZ: 64, SizeC: 3, SizeT: 50,
//	    Type: pixels.Uint16,
//	})
//	if err != nil {
//	    return err
//	}
//	defer buf.Close()
//	plane, err := buf.Plane(25, 1, 25)
package pixels

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/scigolib/pixels/internal/deltavision"
	"github.com/scigolib/pixels/internal/utils"
	"github.com/scigolib/pixels/internal/writer"
)

// Default permission bits for raw files and store directories.
const (
	DefaultFileMode os.FileMode = 0o644
	DefaultDirMode  os.FileMode = 0o755
)

// PixelsService allocates, opens and removes pixel buffers under one store
// root. It keeps no per-buffer state and may be shared between goroutines;
// the buffers it returns may not.
type PixelsService struct {
	root     string
	resolver PathResolver
	logger   Logger
	fileMode os.FileMode
	dirMode  os.FileMode
}

// ServiceOption configures a PixelsService during creation.
//
// Example:
//
//	svc, err := pixels.NewPixelsService("/OMERO",
//	    pixels.WithLogger(pixels.NewLogger(os.Stderr, pixels.LevelInfo)),
//	)
type ServiceOption func(*PixelsService) error

// WithLogger installs an observer for service events.
func WithLogger(logger Logger) ServiceOption {
	return func(s *PixelsService) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithPathResolver replaces the default ShardedResolver.
func WithPathResolver(resolver PathResolver) ServiceOption {
	return func(s *PixelsService) error {
		if resolver == nil {
			return errors.New("path resolver cannot be nil")
		}
		s.resolver = resolver
		return nil
	}
}

// WithFileMode sets the permission bits of newly created raw files.
func WithFileMode(mode os.FileMode) ServiceOption {
	return func(s *PixelsService) error {
		s.fileMode = mode.Perm()
		return nil
	}
}

// WithDirMode sets the permission bits of newly created store directories.
func WithDirMode(mode os.FileMode) ServiceOption {
	return func(s *PixelsService) error {
		s.dirMode = mode.Perm()
		return nil
	}
}

// NewPixelsService creates a service rooted at root (usually /OMERO).
func NewPixelsService(root string, opts ...ServiceOption) (*PixelsService, error) {
	if root == "" {
		return nil, errors.New("store root cannot be empty")
	}
	s := &PixelsService{
		root:     root,
		resolver: ShardedResolver{Root: root},
		logger:   NopLogger(),
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid service option: %w", err)
		}
	}
	return s, nil
}

// Root returns the store root.
func (s *PixelsService) Root() string {
	return s.root
}

// PixelsPath returns the canonical raw path for a pixels id.
func (s *PixelsService) PixelsPath(id int64) string {
	return s.resolver.PixelsPath(id)
}

// FilesPath returns the canonical path of an original file id.
func (s *PixelsService) FilesPath(id int64) string {
	return s.resolver.FilesPath(id)
}

// BitDepth returns the width of t in bits. An unknown type is a programming
// error and panics.
func (s *PixelsService) BitDepth(t PixelsType) int {
	return MustBitDepth(t)
}

func (s *PixelsService) createSubpath(id int64, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return resourceError("create directory", id, path, err)
	}
	return nil
}

// CreatePixelBuffer allocates a new raw file for p, fills every plane with
// the sentinel pattern and returns a buffer over it. An existing raw file is
// replaced only once the new one is complete.
func (s *PixelsService) CreatePixelBuffer(p *Pixels) (*RomioPixelBuffer, error) {
	path := s.resolver.PixelsPath(p.ID)
	buf, err := newRomioPixelBuffer(path, p, s.fileMode)
	if err != nil {
		return nil, err
	}
	if err := s.createSubpath(p.ID, path); err != nil {
		return nil, err
	}
	if err := s.initPixelBuffer(buf); err != nil {
		return nil, err
	}
	s.logger.Info("pixel buffer created", "id", p.ID, "path", path, "bytes", buf.TotalSize())
	return buf, nil
}

// initPixelBuffer writes SizeZ*SizeC*SizeT sentinel planes to a temporary
// sibling of the raw path and renames it into place. The loop is sequential
// and blocking; on failure the temporary file is removed.
func (s *PixelsService) initPixelBuffer(buf *RomioPixelBuffer) (err error) {
	path := buf.Path()
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String())

	fw, err := writer.NewFileWriter(tmp, writer.ModeExclusive, s.fileMode)
	if err != nil {
		return resourceError("create", buf.ID(), tmp, err)
	}
	defer func() {
		if err != nil {
			_ = fw.Close()
			_ = os.Remove(tmp)
		}
	}()

	plane := NullPlaneFill(buf.PlaneSize())
	for z := 0; z < buf.pixels.SizeZ; z++ {
		for c := 0; c < buf.pixels.SizeC; c++ {
			for t := 0; t < buf.pixels.SizeT; t++ {
				if _, err = fw.Append(plane); err != nil {
					return resourceError("initialize", buf.ID(), fw.Name(), err)
				}
			}
		}
	}

	//nolint:gosec // G115: sizes are validated non-negative
	if size, planes := fw.Allocator().TotalAllocated(), fw.Allocator().Count(); size != uint64(buf.TotalSize()) ||
		planes != uint64(buf.pixels.PlaneCount()) {
		err = fmt.Errorf("wrote %d planes (%d bytes), expected %d planes (%d bytes)",
			planes, size, buf.pixels.PlaneCount(), buf.TotalSize())
		return resourceError("initialize", buf.ID(), fw.Name(), err)
	}
	// Read back the tail of the last plane.
	tail := make([]byte, min(len(plane), NullPlaneSize))
	//nolint:gosec // G115: end of file equals the validated total size here
	if _, err = fw.ReadAt(tail, int64(fw.EndOfFile())-int64(len(tail))); err != nil {
		return resourceError("verify", buf.ID(), fw.Name(), err)
	}
	if !bytes.Equal(tail, plane[len(plane)-len(tail):]) {
		err = errors.New("sentinel read back does not match")
		return resourceError("verify", buf.ID(), fw.Name(), err)
	}
	if err = fw.Flush(); err != nil {
		return resourceError("flush", buf.ID(), fw.Name(), err)
	}
	if err = fw.Close(); err != nil {
		return resourceError("close", buf.ID(), tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return resourceError("rename", buf.ID(), path, err)
	}
	return nil
}

// GetPixelBuffer returns a buffer for p. The raw file is used when it
// exists or when bypassOriginalFile is set. Otherwise provider is asked for a
// DeltaVision original file, which backs a read-only buffer when present on
// disk. With no usable original file a raw buffer is returned whose file may
// not exist yet; the first write creates it.
//
// A nil provider behaves as a provider that never finds a file.
func (s *PixelsService) GetPixelBuffer(ctx context.Context, p *Pixels,
	provider OriginalFileMetadataProvider, bypassOriginalFile bool,
) (PixelBuffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	path := s.resolver.PixelsPath(p.ID)

	exists, err := fileExists(path)
	if err != nil {
		return nil, resourceError("stat", p.ID, path, err)
	}

	if !exists && !bypassOriginalFile && provider != nil {
		original, err := provider.OriginalFileWhereFormatStartsWith(ctx, p, DeltaVisionFormat)
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("original file lookup for pixels %d", p.ID), err)
		}
		if original != nil {
			dv, err := s.openOriginal(p, original)
			if err != nil {
				return nil, err
			}
			if dv != nil {
				return dv, nil
			}
		}
	}

	if exists {
		s.logger.Debug("using raw pixel buffer", "id", p.ID, "path", path)
	} else {
		s.logger.Debug("raw pixel buffer file does not exist yet", "id", p.ID, "path", path)
	}
	if err := s.createSubpath(p.ID, path); err != nil {
		return nil, err
	}
	return newRomioPixelBuffer(path, p, s.fileMode)
}

// openOriginal returns a DeltaVision buffer over original, or nil when the
// file is missing or is not a DeltaVision file.
func (s *PixelsService) openOriginal(p *Pixels, original *OriginalFile) (PixelBuffer, error) {
	path := original.Path
	if path == "" {
		path = s.resolver.FilesPath(original.ID)
	}

	//nolint:gosec // G304: path comes from the original file registry
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("original file registered but missing on disk", "id", p.ID, "file", original.ID, "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, resourceError("open original file", p.ID, path, err)
	}
	isDV := deltavision.Sniff(f)
	_ = f.Close()
	if !isDV {
		s.logger.Warn("original file is not a DeltaVision file", "id", p.ID, "file", original.ID, "path", path)
		return nil, nil
	}

	dv, err := OpenDeltaVision(path, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("non-existent pixel buffer file, using DeltaVision original file", "id", p.ID, "path", path)
	return dv, nil
}

// RemovePixels deletes the raw file of every id. Missing files are skipped;
// the first failed deletion aborts with a ResourceError.
func (s *PixelsService) RemovePixels(ids []int64) error {
	for _, id := range ids {
		path := s.resolver.PixelsPath(id)
		err := os.Remove(path)
		switch {
		case err == nil:
			s.logger.Info("pixels deleted", "id", id, "path", path)
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug("pixels already absent", "id", id, "path", path)
		default:
			return resourceError("delete", id, path, err)
		}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
