package pixels

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/pixels/internal/deltavision"
)

type fakeProvider struct {
	file   *OriginalFile
	err    error
	calls  int
	prefix string
}

func (f *fakeProvider) OriginalFileWhereFormatStartsWith(_ context.Context, _ *Pixels, prefix string) (*OriginalFile, error) {
	f.calls++
	f.prefix = prefix
	return f.file, f.err
}

func TestNewPixelsService(t *testing.T) {
	_, err := NewPixelsService("")
	assert.Error(t, err)

	_, err = NewPixelsService("/OMERO", WithLogger(nil))
	assert.Error(t, err)
	_, err = NewPixelsService("/OMERO", WithPathResolver(nil))
	assert.Error(t, err)

	svc, err := NewPixelsService("/OMERO", WithFileMode(0o600), WithDirMode(0o700|os.ModeDir))
	require.NoError(t, err)
	assert.Equal(t, "/OMERO", svc.Root())
	assert.Equal(t, os.FileMode(0o600), svc.fileMode)
	assert.Equal(t, os.FileMode(0o700), svc.dirMode)
	assert.Equal(t, filepath.FromSlash("/OMERO/Pixels/Dir-001/1001"), svc.PixelsPath(1001))
	assert.Equal(t, filepath.FromSlash("/OMERO/Files/5"), svc.FilesPath(5))
	assert.Equal(t, 16, svc.BitDepth(Uint16))
	assert.Equal(t, 1, svc.BitDepth(Bit))
	assert.Panics(t, func() { svc.BitDepth(Unknown) })
}

func TestPixelsService_CreatePixelBuffer(t *testing.T) {
	tests := []struct {
		name string
		p    Pixels
	}{
		{"uint16", Pixels{ID: 1, SizeX: 16, SizeY: 8, SizeZ: 3, SizeC: 2, SizeT: 2, Type: Uint16}},
		{"small planes", Pixels{ID: 2, SizeX: 3, SizeY: 3, SizeZ: 2, SizeC: 1, SizeT: 1, Type: Uint8}},
		{"bit", Pixels{ID: 1002, SizeX: 5, SizeY: 5, SizeZ: 2, SizeC: 2, SizeT: 1, Type: Bit}},
		{"double", Pixels{ID: 3, SizeX: 10, SizeY: 10, SizeZ: 1, SizeC: 1, SizeT: 3, Type: Double}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			buf, err := svc.CreatePixelBuffer(&tt.p)
			require.NoError(t, err)
			defer buf.Close()

			assert.Equal(t, svc.PixelsPath(tt.p.ID), buf.Path())
			raw, err := os.ReadFile(buf.Path())
			require.NoError(t, err)
			require.Equal(t, buf.TotalSize(), int64(len(raw)))

			// Every plane carries the sentinel pattern.
			want := NullPlaneFill(buf.PlaneSize())
			for i := int64(0); i < tt.p.PlaneCount(); i++ {
				plane := raw[i*buf.PlaneSize() : (i+1)*buf.PlaneSize()]
				assert.True(t, bytes.Equal(want, plane), "plane %d", i)
			}

			entries, err := os.ReadDir(filepath.Dir(buf.Path()))
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temporary file %s left behind", e.Name())
			}
		})
	}
}

func TestPixelsService_CreatePixelBuffer_Replaces(t *testing.T) {
	svc := newTestService(t)
	p := &Pixels{ID: 5, SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 1, SizeT: 1, Type: Uint8}
	path := svc.PixelsPath(p.ID)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 100), 0o644))

	buf, err := svc.CreatePixelBuffer(p)
	require.NoError(t, err)
	defer buf.Close()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, NullPlaneFill(4), raw)
}

func TestPixelsService_CreatePixelBuffer_Invalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreatePixelBuffer(&Pixels{ID: 1, SizeX: 0, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1, Type: Uint8})
	assert.ErrorIs(t, err, ErrDimensionsOutOfBounds)
	_, err = svc.CreatePixelBuffer(&Pixels{ID: 1, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1})
	assert.ErrorIs(t, err, ErrUnsupportedPixelsType)

	_, statErr := os.Stat(svc.PixelsPath(1))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPixelsService_CreatePixelBuffer_Unwritable(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, PixelsDir)
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	svc, err := NewPixelsService(root)
	require.NoError(t, err)
	_, err = svc.CreatePixelBuffer(&Pixels{ID: 1, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1, Type: Uint8})
	require.ErrorIs(t, err, ErrResource)
	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, int64(1), resErr.ID)
}

func TestPixelsService_RemovePixels(t *testing.T) {
	svc := newTestService(t)

	// Removing pixels that were never written is not an error.
	require.NoError(t, svc.RemovePixels([]int64{424242}))
	require.NoError(t, svc.RemovePixels(nil))

	p := &Pixels{ID: 7, SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 1, SizeT: 1, Type: Uint8}
	buf, err := svc.CreatePixelBuffer(p)
	require.NoError(t, err)
	require.NoError(t, buf.Close())

	require.NoError(t, svc.RemovePixels([]int64{7, 8}))
	_, err = os.Stat(svc.PixelsPath(7))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, svc.RemovePixels([]int64{7}), "second removal is a no-op")
}

func TestPixelsService_RemovePixels_Failure(t *testing.T) {
	svc := newTestService(t)
	path := svc.PixelsPath(9)
	// A non-empty directory in place of the raw file cannot be removed.
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := svc.RemovePixels([]int64{9})
	require.ErrorIs(t, err, ErrResource)
	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "delete", resErr.Op)
	assert.Equal(t, path, resErr.Path)
}

func TestPixelsService_GetPixelBuffer(t *testing.T) {
	ctx := context.Background()
	p := &Pixels{ID: 30, SizeX: 4, SizeY: 2, SizeZ: 2, SizeC: 1, SizeT: 2, Type: Uint16}
	l, err := computeLayout(p)
	require.NoError(t, err)
	canonical := patterned(l.totalSize, 9)

	setup := func(t *testing.T) (*PixelsService, *OriginalFile) {
		svc := newTestService(t)
		original := &OriginalFile{ID: 77, Format: "DV"}
		writeDeltaVision(t, svc.FilesPath(original.ID), p, deltavision.SequenceWZT, binary.LittleEndian, canonical)
		return svc, original
	}

	t.Run("original file used when raw file is missing", func(t *testing.T) {
		svc, original := setup(t)
		provider := &fakeProvider{file: original}

		buf, err := svc.GetPixelBuffer(ctx, p, provider, false)
		require.NoError(t, err)
		defer buf.Close()

		assert.Equal(t, 1, provider.calls)
		assert.Equal(t, DeltaVisionFormat, provider.prefix)
		require.IsType(t, &DeltaVision{}, buf)
		assert.Equal(t, svc.FilesPath(original.ID), buf.Path())

		tp, err := buf.Timepoint(1)
		require.NoError(t, err)
		assert.Equal(t, canonical[l.timepointSize:], tp)
		assert.ErrorIs(t, buf.SetPlane(0, 0, 0, make([]byte, l.planeSize)), ErrReadOnly)
	})

	t.Run("explicit original path", func(t *testing.T) {
		svc := newTestService(t)
		path := filepath.Join(t.TempDir(), "elsewhere.dv")
		writeDeltaVision(t, path, p, deltavision.SequenceZTW, binary.BigEndian, canonical)

		buf, err := svc.GetPixelBuffer(ctx, p, &fakeProvider{file: &OriginalFile{ID: 1, Format: "DV", Path: path}}, false)
		require.NoError(t, err)
		defer buf.Close()
		assert.Equal(t, path, buf.Path())
	})

	t.Run("bypass ignores the provider", func(t *testing.T) {
		svc, original := setup(t)
		provider := &fakeProvider{file: original}

		buf, err := svc.GetPixelBuffer(ctx, p, provider, true)
		require.NoError(t, err)
		defer buf.Close()

		assert.Zero(t, provider.calls)
		assert.IsType(t, &RomioPixelBuffer{}, buf)
		assert.Equal(t, svc.PixelsPath(p.ID), buf.Path())
	})

	t.Run("existing raw file wins", func(t *testing.T) {
		svc, original := setup(t)
		rb, err := svc.CreatePixelBuffer(p)
		require.NoError(t, err)
		require.NoError(t, rb.Close())
		provider := &fakeProvider{file: original}

		buf, err := svc.GetPixelBuffer(ctx, p, provider, false)
		require.NoError(t, err)
		defer buf.Close()

		assert.Zero(t, provider.calls)
		assert.IsType(t, &RomioPixelBuffer{}, buf)
		plane, err := buf.Plane(0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, NullPlaneFill(l.planeSize), plane)
	})

	t.Run("no original file", func(t *testing.T) {
		svc := newTestService(t)
		provider := &fakeProvider{}

		buf, err := svc.GetPixelBuffer(ctx, p, provider, false)
		require.NoError(t, err)
		defer buf.Close()
		assert.Equal(t, 1, provider.calls)
		assert.IsType(t, &RomioPixelBuffer{}, buf)
	})

	t.Run("registered original missing on disk", func(t *testing.T) {
		var logs bytes.Buffer
		svc, err := NewPixelsService(t.TempDir(), WithLogger(NewLogger(&logs, LevelDebug)))
		require.NoError(t, err)

		buf, err := svc.GetPixelBuffer(ctx, p, &fakeProvider{file: &OriginalFile{ID: 78, Format: "DV"}}, false)
		require.NoError(t, err)
		defer buf.Close()
		assert.IsType(t, &RomioPixelBuffer{}, buf)
		assert.Contains(t, logs.String(), "[WARN] original file registered but missing on disk")
	})

	t.Run("original is not a DeltaVision file", func(t *testing.T) {
		svc := newTestService(t)
		path := filepath.Join(t.TempDir(), "not.dv")
		require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

		buf, err := svc.GetPixelBuffer(ctx, p, &fakeProvider{file: &OriginalFile{ID: 1, Format: "DV", Path: path}}, false)
		require.NoError(t, err)
		defer buf.Close()
		assert.IsType(t, &RomioPixelBuffer{}, buf)
	})

	t.Run("original disagrees with descriptor", func(t *testing.T) {
		svc, original := setup(t)
		q := *p
		q.Type = Int16

		_, err := svc.GetPixelBuffer(ctx, &q, &fakeProvider{file: original}, false)
		assert.ErrorIs(t, err, ErrUnsupportedPixelsType)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc := newTestService(t)
		boom := errors.New("metadata store unavailable")

		_, err := svc.GetPixelBuffer(ctx, p, &fakeProvider{err: boom}, false)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil provider", func(t *testing.T) {
		svc := newTestService(t)
		buf, err := svc.GetPixelBuffer(ctx, p, nil, false)
		require.NoError(t, err)
		defer buf.Close()
		assert.IsType(t, &RomioPixelBuffer{}, buf)
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		svc := newTestService(t)
		q := *p
		q.SizeT = 0
		_, err := svc.GetPixelBuffer(ctx, &q, nil, true)
		assert.ErrorIs(t, err, ErrDimensionsOutOfBounds)
	})
}

func TestPixelsService_RoundTripThroughService(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	p := &Pixels{ID: 40, SizeX: 8, SizeY: 4, SizeZ: 3, SizeC: 2, SizeT: 2, Type: Int32}

	created, err := svc.CreatePixelBuffer(p)
	require.NoError(t, err)
	want := patterned(created.PlaneSize(), 17)
	require.NoError(t, created.SetPlane(2, 1, 1, want))
	require.NoError(t, created.Close())

	buf, err := svc.GetPixelBuffer(ctx, p, nil, false)
	require.NoError(t, err)
	defer buf.Close()
	got, err := buf.Plane(2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := buf.Plane(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, NullPlaneFill(created.PlaneSize()), other)
}
