// Package registry keeps a SQLite table of imported vendor files so a
// PixelsService can find the original file behind a pixel set.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scigolib/pixels"
)

const schema = `
CREATE TABLE IF NOT EXISTS original_files (
	id INTEGER PRIMARY KEY,
	pixels_id INTEGER NOT NULL,
	format TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_original_files_pixels_id ON original_files(pixels_id);
`

// Store is a SQLite-backed pixels.OriginalFileMetadataProvider.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

var _ pixels.OriginalFileMetadataProvider = (*Store)(nil)

// Open opens (creating if needed) the registry database at path and
// ensures its schema. ":memory:" gives a private in-memory registry.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, wrapError("open", errors.New("database path cannot be empty"))
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapError("open", fmt.Errorf("failed to open database: %w", err))
	}
	// Every connection to ":memory:" is a separate database; one connection
	// keeps the registry consistent and costs nothing for a lookup table.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, wrapError("open", fmt.Errorf("failed to create schema: %w", err))
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Register records f as an original file of pixelsID. A zero f.ID lets
// SQLite assign one; the assigned id is written back to f.
func (s *Store) Register(ctx context.Context, pixelsID int64, f *pixels.OriginalFile) error {
	if f == nil || normalizeFormat(f.Format) == "" {
		return wrapError("register", fmt.Errorf("%w: format is required", ErrInvalidFile))
	}
	f.Format = normalizeFormat(f.Format)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrapError("register", ErrStoreClosed)
	}

	var id any
	if f.ID != 0 {
		id = f.ID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO original_files (id, pixels_id, format, path) VALUES (?, ?, ?, ?)`,
		id, pixelsID, f.Format, f.Path)
	if err != nil {
		return wrapError("register", err)
	}
	if f.ID == 0 {
		if f.ID, err = res.LastInsertId(); err != nil {
			return wrapError("register", err)
		}
	}
	return nil
}

// Get returns the original file with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*pixels.OriginalFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, wrapError("get", ErrStoreClosed)
	}

	f := &pixels.OriginalFile{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT format, path FROM original_files WHERE id = ?`, id).Scan(&f.Format, &f.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("get", fmt.Errorf("%w: %d", ErrNotFound, id))
	}
	if err != nil {
		return nil, wrapError("get", err)
	}
	return f, nil
}

// List returns the original files of pixelsID ordered by id.
func (s *Store) List(ctx context.Context, pixelsID int64) ([]*pixels.OriginalFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, wrapError("list", ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, format, path FROM original_files WHERE pixels_id = ? ORDER BY id`, pixelsID)
	if err != nil {
		return nil, wrapError("list", err)
	}
	defer rows.Close()

	var files []*pixels.OriginalFile
	for rows.Next() {
		f := &pixels.OriginalFile{}
		if err := rows.Scan(&f.ID, &f.Format, &f.Path); err != nil {
			return nil, wrapError("list", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list", err)
	}
	return files, nil
}

// Remove deletes the registration of original file id. Removing an unknown
// id is a no-op.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrapError("remove", ErrStoreClosed)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM original_files WHERE id = ?`, id); err != nil {
		return wrapError("remove", err)
	}
	return nil
}

// OriginalFileWhereFormatStartsWith implements pixels.OriginalFileMetadataProvider.
// The lowest matching id wins; format matching is case-sensitive.
func (s *Store) OriginalFileWhereFormatStartsWith(ctx context.Context, p *pixels.Pixels, prefix string) (*pixels.OriginalFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, wrapError("lookup", ErrStoreClosed)
	}

	f := &pixels.OriginalFile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, format, path FROM original_files
		 WHERE pixels_id = ? AND instr(format, ?) = 1
		 ORDER BY id LIMIT 1`,
		p.ID, prefix).Scan(&f.ID, &f.Format, &f.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("lookup", err)
	}
	return f, nil
}

// Close closes the database. It is safe to call Close multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// normalizeFormat trims whitespace around a user supplied format tag.
func normalizeFormat(format string) string {
	return strings.TrimSpace(format)
}
