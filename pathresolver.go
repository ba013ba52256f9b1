package pixels

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// PathResolver maps numeric ids to canonical filesystem paths. It must be
// deterministic: the same id always yields the same path.
type PathResolver interface {
	// PixelsPath returns the raw store path for a pixels id.
	PixelsPath(id int64) string
	// FilesPath returns the path of an original file by id.
	FilesPath(id int64) string
}

// Subdirectories of the store root.
const (
	PixelsDir = "Pixels"
	FilesDir  = "Files"
)

// ShardedResolver spreads files over "Dir-NNN" directories so no directory
// holds more than a thousand entries: id 1234567 resolves to
// <Root>/Pixels/Dir-001/Dir-234/1234567.
type ShardedResolver struct {
	Root string
}

// PixelsPath implements PathResolver.
func (r ShardedResolver) PixelsPath(id int64) string {
	return r.path(PixelsDir, id)
}

// FilesPath implements PathResolver.
func (r ShardedResolver) FilesPath(id int64) string {
	return r.path(FilesDir, id)
}

func (r ShardedResolver) path(prefix string, id int64) string {
	parts := []string{r.Root, prefix}
	parts = append(parts, shardDirs(id)...)
	parts = append(parts, strconv.FormatInt(id, 10))
	return filepath.Join(parts...)
}

// shardDirs returns the Dir-NNN components for id, outermost first.
func shardDirs(id int64) []string {
	var dirs []string
	for remaining := id; remaining > 999; {
		remaining /= 1000
		if remaining > 0 {
			dirs = append([]string{fmt.Sprintf("Dir-%03d", remaining%1000)}, dirs...)
		}
	}
	return dirs
}
