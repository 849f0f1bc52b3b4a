package cache

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Store:
// - Put then Get round-trips an entry with its imports
// - Get misses when hash differs, mtime differs, or path is unknown
// - Put replaces previous imports for the same path
// - Invalidate removes an entry
// - Reset clears everything
// - Corrupt database degrades to a miss, not an error
// Test Plan for DetectChanges:
// - New files are Added, cached-but-gone files are Deleted
// - Same mtime short-circuits to Unchanged
// - Touched-but-identical content is Unchanged, edited content Modified

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	mtime := time.Now().Truncate(time.Microsecond)

	entry := &Entry{
		Path:     "src/a.js",
		Hash:     "abc123",
		Mtime:    mtime,
		Language: "javascript",
		Imports: []Import{
			{Target: "./b", Raw: "import b from './b';", Line: 1, Resolved: "src/b.js", Status: 0},
			{Target: "missing", Raw: "import m from 'missing';", Line: 2, Status: 2},
		},
	}
	require.NoError(t, s.Put(entry))

	got, ok := s.Get("src/a.js", "abc123", mtime)
	require.True(t, ok)
	assert.Equal(t, "javascript", got.Language)
	require.Len(t, got.Imports, 2)
	assert.Equal(t, "./b", got.Imports[0].Target)
	assert.Equal(t, "src/b.js", got.Imports[0].Resolved)
	assert.Equal(t, 2, got.Imports[1].Line)
}

func TestStore_GetMisses(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	mtime := time.Now()
	require.NoError(t, s.Put(&Entry{Path: "a.py", Hash: "h1", Mtime: mtime, Language: "python"}))

	_, ok := s.Get("a.py", "other-hash", mtime)
	assert.False(t, ok, "hash mismatch must miss")

	_, ok = s.Get("a.py", "h1", mtime.Add(time.Second))
	assert.False(t, ok, "mtime mismatch must miss")

	_, ok = s.Get("unknown.py", "h1", mtime)
	assert.False(t, ok, "unknown path must miss")
}

func TestStore_PutReplacesImports(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	mtime := time.Now()

	require.NoError(t, s.Put(&Entry{
		Path: "a.py", Hash: "h1", Mtime: mtime, Language: "python",
		Imports: []Import{{Target: "old", Raw: "import old", Line: 1}},
	}))
	require.NoError(t, s.Put(&Entry{
		Path: "a.py", Hash: "h2", Mtime: mtime, Language: "python",
		Imports: []Import{{Target: "new", Raw: "import new", Line: 3}},
	}))

	got, ok := s.Get("a.py", "h2", mtime)
	require.True(t, ok)
	require.Len(t, got.Imports, 1)
	assert.Equal(t, "new", got.Imports[0].Target)
}

func TestStore_Invalidate(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	mtime := time.Now()
	require.NoError(t, s.Put(&Entry{Path: "a.py", Hash: "h1", Mtime: mtime, Language: "python"}))

	require.NoError(t, s.Invalidate("a.py"))
	_, ok := s.Get("a.py", "h1", mtime)
	assert.False(t, ok)
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	mtime := time.Now()
	require.NoError(t, s.Put(&Entry{Path: "a.py", Hash: "h1", Mtime: mtime, Language: "python"}))
	require.NoError(t, s.Put(&Entry{Path: "b.py", Hash: "h2", Mtime: mtime, Language: "python"}))

	require.NoError(t, s.Reset())

	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_CorruptDatabaseIsMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Put(&Entry{Path: "a.py", Hash: "h1", Mtime: time.Now(), Language: "python"}))
	require.NoError(t, s.Close())

	// Truncate the database file in place.
	require.NoError(t, os.WriteFile(dbPath, []byte("not a database"), 0644))

	s2, err := Open(dbPath)
	if err != nil {
		// Open may refuse the corrupt file outright; that is also an
		// acceptable degradation for callers, who fall back to no cache.
		return
	}
	defer s2.Close()
	_, ok := s2.Get("a.py", "h1", time.Now())
	assert.False(t, ok)
}

func TestDetectChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := openTestStore(t)

	write := func(rel, content string) string {
		abs := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
		return abs
	}

	unchangedAbs := write("keep.py", "import os\n")
	write("edited.py", "import sys\n")
	write("fresh.py", "x = 1\n")

	stat := func(abs string) time.Time {
		info, err := os.Stat(abs)
		require.NoError(t, err)
		return info.ModTime()
	}

	hash, err := HashFile(unchangedAbs)
	require.NoError(t, err)
	require.NoError(t, s.Put(&Entry{Path: "keep.py", Hash: hash, Mtime: stat(unchangedAbs), Language: "python"}))

	editedAbs := filepath.Join(root, "edited.py")
	require.NoError(t, s.Put(&Entry{Path: "edited.py", Hash: "stale-hash", Mtime: stat(editedAbs).Add(-time.Hour), Language: "python"}))

	require.NoError(t, s.Put(&Entry{Path: "removed.py", Hash: "gone", Mtime: time.Now(), Language: "python"}))

	changes, err := DetectChanges(root, []string{"keep.py", "edited.py", "fresh.py"}, s)
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh.py"}, changes.Added)
	assert.Equal(t, []string{"edited.py"}, changes.Modified)
	assert.Equal(t, []string{"removed.py"}, changes.Deleted)
	assert.Equal(t, []string{"keep.py"}, changes.Unchanged)
	assert.True(t, changes.HasChanges())
}

func TestDetectChanges_MtimeDriftIsUnchanged(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := openTestStore(t)

	abs := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(abs, []byte("import os\n"), 0644))

	hash, err := HashFile(abs)
	require.NoError(t, err)
	info, err := os.Stat(abs)
	require.NoError(t, err)

	// Cache the right hash with a drifted mtime.
	require.NoError(t, s.Put(&Entry{Path: "a.py", Hash: hash, Mtime: info.ModTime().Add(-time.Minute), Language: "python"}))

	changes, err := DetectChanges(root, []string{"a.py"}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, changes.Unchanged)
	assert.False(t, changes.HasChanges())
}

func TestStore_FilesSorted(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	now := time.Now()
	for _, p := range []string{"z.py", "a.py", "m.py"} {
		require.NoError(t, s.Put(&Entry{Path: p, Hash: "h", Mtime: now, Language: "python"}))
	}

	files, err := s.Files()
	require.NoError(t, err)
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.True(t, sort.StringsAreSorted(paths))
	assert.Len(t, paths, 3)
}
