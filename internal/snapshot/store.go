package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	entriesDir = "entries"
	objectsDir = "objects"
	indexFile  = "index.json"
)

// Store provides content-addressable storage for undo entries. File
// pre-images are stored as hash-named objects, deduplicated across
// entries; entry metadata lives in one JSON file per entry plus a
// listing index.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	index   *Index
}

// NewStore creates or opens a snapshot store at the given directory.
func NewStore(rootDir string) (*Store, error) {
	s := &Store{rootDir: rootDir}

	for _, dir := range []string{
		filepath.Join(rootDir, entriesDir),
		filepath.Join(rootDir, objectsDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	if err := s.loadIndex(); err != nil {
		s.index = &Index{Entries: []Summary{}, UpdatedAt: time.Now()}
	}
	return s, nil
}

// Save persists an entry and the pre-image contents it references.
// contents maps content hash to bytes; only hashes referenced by the
// entry's captures need to be present.
func (s *Store) Save(e *Entry, contents map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range e.Captures {
		if !c.Existed {
			continue
		}
		content, ok := contents[c.ContentHash]
		if !ok {
			return fmt.Errorf("missing pre-image content for %s", c.Path)
		}
		if err := s.writeObject(c.ContentHash, content); err != nil {
			return fmt.Errorf("store object for %s: %w", c.Path, err)
		}
	}

	entryDir := filepath.Join(s.rootDir, entriesDir, e.ID)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, "entry.json"), data, 0o644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	s.index.Entries = append(s.index.Entries, e.Summary())
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Load retrieves an entry by ID.
func (s *Store) Load(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.rootDir, entriesDir, id, "entry.json"))
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", id, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
	}
	return &e, nil
}

// ReadObject retrieves pre-image content by its hash.
func (s *Store) ReadObject(hash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readObject(hash)
}

// List returns all entry summaries, newest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Summary, len(s.index.Entries))
	copy(result, s.index.Entries)
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Delete removes an entry from the store and the index. Objects are kept;
// they are content-addressed and may be shared with other entries.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.rootDir, entriesDir, id)); err != nil {
		return fmt.Errorf("remove entry dir: %w", err)
	}

	filtered := s.index.Entries[:0]
	for _, summary := range s.index.Entries {
		if summary.ID != id {
			filtered = append(filtered, summary)
		}
	}
	s.index.Entries = filtered
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

func (s *Store) writeObject(hash string, content []byte) error {
	dir := filepath.Join(s.rootDir, objectsDir, hash[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	objPath := filepath.Join(dir, hash[2:])
	if _, err := os.Stat(objPath); err == nil {
		return nil // content-addressable dedup
	}
	return os.WriteFile(objPath, content, 0o644)
}

func (s *Store) readObject(hash string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.rootDir, objectsDir, hash[:2], hash[2:]))
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.rootDir, indexFile))
	if err != nil {
		return err
	}
	s.index = &Index{}
	return json.Unmarshal(data, s.index)
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.rootDir, indexFile), data, 0o644)
}
