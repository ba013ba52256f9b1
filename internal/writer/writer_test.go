package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileWriter(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name          string
		filename      string
		mode          CreateMode
		wantErr       bool
		setupExisting bool // Create file before test
	}{
		{
			name:     "create new file truncate mode",
			filename: "1",
			mode:     ModeTruncate,
		},
		{
			name:     "create new file exclusive mode",
			filename: "2",
			mode:     ModeExclusive,
		},
		{
			name:          "truncate existing file",
			filename:      "3",
			mode:          ModeTruncate,
			setupExisting: true,
		},
		{
			name:          "exclusive mode fails on existing",
			filename:      "4",
			mode:          ModeExclusive,
			setupExisting: true,
			wantErr:       true,
		},
		{
			name:     "invalid mode",
			filename: "5",
			mode:     CreateMode(42),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)

			if tt.setupExisting {
				require.NoError(t, os.WriteFile(path, []byte("existing content"), 0o600))
			}

			writer, err := NewFileWriter(path, tt.mode, 0o644)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, writer)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, writer)
			defer writer.Close()

			assert.Equal(t, path, writer.Name())
			assert.Equal(t, uint64(0), writer.EndOfFile())

			fi, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(0), fi.Size(), "truncate/create must leave an empty file")
		})
	}
}

func TestFileWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1")

	writer, err := NewFileWriter(path, ModeTruncate, 0o644)
	require.NoError(t, err)
	defer writer.Close()

	plane := []byte{0x80, 0x7F, 0x80, 0x7F}

	addr1, err := writer.Append(plane)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr1)

	addr2, err := writer.Append(plane)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), addr2)
	assert.Equal(t, uint64(8), writer.EndOfFile())
	assert.Equal(t, uint64(2), writer.Allocator().Count())

	buf := make([]byte, 8)
	_, err = writer.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, plane...), plane...), buf)

	_, err = writer.Append(nil)
	assert.Error(t, err)
}

func TestFileWriter_WriteAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1")

	writer, err := NewFileWriter(path, ModeTruncate, 0o644)
	require.NoError(t, err)
	defer writer.Close()

	t.Run("write data at address", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03, 0x04}
		n, err := writer.WriteAt(data, 16)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)

		buf := make([]byte, len(data))
		_, err = writer.ReadAt(buf, 16)
		require.NoError(t, err)
		assert.Equal(t, data, buf)
	})

	t.Run("write empty data", func(t *testing.T) {
		n, err := writer.WriteAt([]byte{}, 0)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestFileWriter_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1")

	writer, err := NewFileWriter(path, ModeTruncate, 0o644)
	require.NoError(t, err)

	require.NoError(t, writer.Flush())
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close(), "second close is a no-op")

	_, err = writer.WriteAt([]byte{1}, 0)
	assert.Error(t, err)
	_, err = writer.ReadAt(make([]byte, 1), 0)
	assert.Error(t, err)
	_, err = writer.Allocate(1)
	assert.Error(t, err)
	assert.Error(t, writer.Flush())
	assert.Equal(t, path, writer.Name())
}
