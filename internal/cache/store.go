// Package cache persists extraction and resolution results between scans,
// keyed by file path with fingerprint+mtime staleness checks. It is an
// optimization only: any read problem degrades to a cache miss and the scan
// recomputes from source.
package cache

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is the cached scan result for one file.
type Entry struct {
	Path      string
	Hash      string // sha256 of contents
	Mtime     time.Time
	Language  string
	ScannedAt time.Time
	Imports   []Import
}

// Import is one cached import record.
type Import struct {
	Target   string
	Raw      string
	Line     int
	Resolved string
	Status   int
}

// FileState is the minimal per-file record used for change detection.
type FileState struct {
	Path  string
	Hash  string
	Mtime time.Time
}

// Store is a sqlite-backed scan cache.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	mtime_ns   INTEGER NOT NULL,
	language   TEXT NOT NULL,
	scanned_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
	source_path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	target      TEXT NOT NULL,
	raw         TEXT NOT NULL,
	line        INTEGER NOT NULL,
	resolved    TEXT NOT NULL DEFAULT '',
	status      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_imports_source ON imports(source_path);
`

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached entry for path when both fingerprint and mtime
// match the stored values. Any error or mismatch is a miss; corruption is
// logged, never propagated.
func (s *Store) Get(path, hash string, mtime time.Time) (*Entry, bool) {
	row := sq.Select("hash", "mtime_ns", "language", "scanned_at").
		From("files").
		Where(sq.Eq{"path": path}).
		RunWith(s.db).
		QueryRow()

	var (
		storedHash string
		mtimeNS    int64
		language   string
		scannedAt  string
	)
	if err := row.Scan(&storedHash, &mtimeNS, &language, &scannedAt); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("cache: read for %s failed, treating as miss: %v", path, err)
		}
		return nil, false
	}

	// Staleness is decided purely on fingerprint+mtime.
	if storedHash != hash || mtimeNS != mtime.UnixNano() {
		return nil, false
	}

	entry := &Entry{
		Path:     path,
		Hash:     storedHash,
		Mtime:    time.Unix(0, mtimeNS),
		Language: language,
	}
	if ts, err := time.Parse(time.RFC3339Nano, scannedAt); err == nil {
		entry.ScannedAt = ts
	}

	rows, err := sq.Select("target", "raw", "line", "resolved", "status").
		From("imports").
		Where(sq.Eq{"source_path": path}).
		OrderBy("line", "target").
		RunWith(s.db).
		Query()
	if err != nil {
		log.Printf("cache: import read for %s failed, treating as miss: %v", path, err)
		return nil, false
	}
	defer rows.Close()

	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.Target, &imp.Raw, &imp.Line, &imp.Resolved, &imp.Status); err != nil {
			log.Printf("cache: corrupt import row for %s, treating as miss: %v", path, err)
			return nil, false
		}
		entry.Imports = append(entry.Imports, imp)
	}
	if err := rows.Err(); err != nil {
		log.Printf("cache: import scan for %s failed, treating as miss: %v", path, err)
		return nil, false
	}

	return entry, true
}

// Put replaces the cached entry for a file in one transaction.
func (s *Store) Put(e *Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Delete("imports").
		Where(sq.Eq{"source_path": e.Path}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to clear cached imports for %s: %w", e.Path, err)
	}

	scannedAt := e.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}
	_, err = sq.Insert("files").
		Columns("path", "hash", "mtime_ns", "language", "scanned_at").
		Values(e.Path, e.Hash, e.Mtime.UnixNano(), e.Language, scannedAt.Format(time.RFC3339Nano)).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write cache entry for %s: %w", e.Path, err)
	}

	for _, imp := range e.Imports {
		_, err = sq.Insert("imports").
			Columns("source_path", "target", "raw", "line", "resolved", "status").
			Values(e.Path, imp.Target, imp.Raw, imp.Line, imp.Resolved, imp.Status).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to write cached import for %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// Invalidate removes the cached entry for a path.
func (s *Store) Invalidate(path string) error {
	if _, err := sq.Delete("imports").Where(sq.Eq{"source_path": path}).RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("failed to invalidate cached imports for %s: %w", path, err)
	}
	if _, err := sq.Delete("files").Where(sq.Eq{"path": path}).RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("failed to invalidate cache entry for %s: %w", path, err)
	}
	return nil
}

// Files returns the per-file state of every cached entry.
func (s *Store) Files() ([]FileState, error) {
	rows, err := sq.Select("path", "hash", "mtime_ns").
		From("files").
		OrderBy("path").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var out []FileState
	for rows.Next() {
		var (
			fs      FileState
			mtimeNS int64
		)
		if err := rows.Scan(&fs.Path, &fs.Hash, &mtimeNS); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		fs.Mtime = time.Unix(0, mtimeNS)
		out = append(out, fs)
	}
	return out, rows.Err()
}

// Reset drops every cached entry.
func (s *Store) Reset() error {
	if _, err := s.db.Exec("DELETE FROM imports"); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM files"); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	return nil
}
