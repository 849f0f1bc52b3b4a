package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// ChangeSet is the result of comparing disk state to cache state.
type ChangeSet struct {
	Added     []string // on disk, not in cache
	Modified  []string // different hash than cached
	Deleted   []string // cached, no longer on disk
	Unchanged []string // same hash (mtime may have drifted)
}

// HasChanges reports whether anything needs reprocessing.
func (c *ChangeSet) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Modified) > 0 || len(c.Deleted) > 0
}

// DetectChanges compares the discovered file set (project-relative paths)
// against the cache. Mtime equality is the fast path; when mtime differs the
// hash decides, so a touch without an edit stays Unchanged.
func DetectChanges(rootDir string, discovered []string, store *Store) (*ChangeSet, error) {
	changes := &ChangeSet{
		Added:     []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: []string{},
	}

	cached, err := store.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache state: %w", err)
	}
	cachedMap := make(map[string]FileState, len(cached))
	for _, fs := range cached {
		cachedMap[fs.Path] = fs
	}

	for _, relPath := range discovered {
		absPath := filepath.Join(rootDir, relPath)
		info, err := os.Stat(absPath)
		if err != nil {
			// Discovered a moment ago but gone now; the deleted pass
			// below picks it up if it was cached.
			continue
		}

		state, inCache := cachedMap[relPath]
		if !inCache {
			changes.Added = append(changes.Added, relPath)
			continue
		}
		delete(cachedMap, relPath)

		if info.ModTime().UnixNano() == state.Mtime.UnixNano() {
			changes.Unchanged = append(changes.Unchanged, relPath)
			continue
		}

		hash, err := HashFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", relPath, err)
		}
		if hash == state.Hash {
			changes.Unchanged = append(changes.Unchanged, relPath)
		} else {
			changes.Modified = append(changes.Modified, relPath)
		}
	}

	for relPath := range cachedMap {
		changes.Deleted = append(changes.Deleted, relPath)
	}

	return changes, nil
}

// HashFile returns the hex sha256 fingerprint of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}

// Hash returns the hex sha256 fingerprint of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
