package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codesweep/internal/cache"
	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// Test Plan for Builder:
// 1. Discovery honors excluded dirs, skip patterns, and classification.
// 2. A full build extracts, resolves, and assembles a deterministic graph.
// 3. With a cache, a second identical build is served entirely from hits.
// 4. Incremental builds re-extract only changed files but still re-resolve
//    kept nodes against the new file set.
// 5. Binary files are skipped and excluded from the graph.

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func testClassifier(t *testing.T) *lang.Classifier {
	t.Helper()
	c, err := lang.NewClassifier(lang.DefaultExtensions())
	require.NoError(t, err)
	return c
}

func testBuilder(t *testing.T, dir string, opts ...BuilderOption) *Builder {
	t.Helper()
	b, err := NewBuilder(dir, testClassifier(t),
		[]string{"src"},
		[]string{"node_modules", "dist"},
		[]string{"*.spec.*", "*.d.ts"},
		opts...)
	require.NoError(t, err)
	return b
}

func TestBuilder_Discover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js":                 "",
		"src/sub/b.ts":             "",
		"src/a.spec.js":            "",
		"src/types.d.ts":           "",
		"src/node_modules/mod.js":  "",
		"src/dist/bundle.js":       "",
		"src/readme.md":            "",
		"outside/not-in-root.js":   "",
		"src/deep/nested/deep.py":  "",
		"src/deep/nested/data.bin": "",
	})

	files, err := testBuilder(t, dir).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js", "src/deep/nested/deep.py", "src/sub/b.ts"}, files)
}

func TestBuilder_Discover_MissingRootSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/a.js": ""})

	b, err := NewBuilder(dir, testClassifier(t), []string{"src", "lib"}, nil, nil)
	require.NoError(t, err)

	files, err := b.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js"}, files)
}

func TestBuilder_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(t.TempDir(), testClassifier(t), []string{"src"}, []string{"[bad"}, nil)
	assert.Error(t, err)
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js": "import b from './b'\nimport gone from './gone'\nimport react from 'react'\n",
		"src/b.js": "export default 1\n",
	})

	result, err := testBuilder(t, dir).Build(context.Background())
	require.NoError(t, err)

	g := result.Graph
	require.Equal(t, 2, g.Len())
	assert.Equal(t, 2, result.CacheMisses)
	assert.Equal(t, 0, result.CacheHits)

	a, ok := g.Node("src/a.js")
	require.True(t, ok)
	require.Len(t, a.Edges, 3)
	assert.Equal(t, "src/b.js", a.Edges[0].Resolved)
	assert.Equal(t, resolve.StatusResolved, a.Edges[0].Status)
	assert.Equal(t, resolve.StatusUnresolved, a.Edges[1].Status)
	assert.Equal(t, resolve.StatusExternal, a.Edges[2].Status)

	assert.Equal(t, []string{"src/a.js"}, g.Referrers("src/b.js"))

	broken := g.Broken()
	require.Len(t, broken, 1)
	assert.Equal(t, "./gone", broken[0].Target)
}

func TestBuilder_Build_SkipsBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/a.js": "import './b'\n"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "b.js"), []byte{0x00, 0x01, 0x02}, 0o644))

	result, err := testBuilder(t, dir).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Graph.Len())
	assert.Equal(t, 1, result.Skipped)

	// The binary file is still present on disk, so the import resolves.
	a, ok := result.Graph.Node("src/a.js")
	require.True(t, ok)
	assert.Equal(t, resolve.StatusResolved, a.Edges[0].Status)
}

func TestBuilder_Build_CacheHitsOnSecondRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js": "import b from './b'\n",
		"src/b.js": "export default 1\n",
	})

	store, err := cache.Open(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer store.Close()

	first, err := testBuilder(t, dir, WithCache(store)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.CacheMisses)

	second, err := testBuilder(t, dir, WithCache(store)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, 0, second.CacheMisses)

	a, ok := second.Graph.Node("src/a.js")
	require.True(t, ok)
	require.Len(t, a.Edges, 1)
	assert.Equal(t, "src/b.js", a.Edges[0].Resolved)
	assert.Equal(t, resolve.StatusResolved, a.Edges[0].Status)
}

func TestBuilder_Build_CachedEntryReresolvedWhenTargetGone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js": "import b from './b'\n",
		"src/b.js": "export default 1\n",
	})

	store, err := cache.Open(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = testBuilder(t, dir, WithCache(store)).Build(context.Background())
	require.NoError(t, err)

	// Deleting b.js must turn a.js's cached resolved edge broken even
	// though a.js itself is unchanged.
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "b.js")))

	result, err := testBuilder(t, dir, WithCache(store)).Build(context.Background())
	require.NoError(t, err)

	a, ok := result.Graph.Node("src/a.js")
	require.True(t, ok)
	require.Len(t, a.Edges, 1)
	assert.Equal(t, resolve.StatusUnresolved, a.Edges[0].Status)
}

func TestBuilder_BuildIncremental(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js": "import b from './b'\n",
		"src/b.js": "export default 1\n",
	})

	b := testBuilder(t, dir)
	first, err := b.Build(context.Background())
	require.NoError(t, err)

	// Delete b.js and add c.js; a.js is untouched.
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "b.js")))
	writeTree(t, dir, map[string]string{"src/c.js": "import a from './a'\n"})

	changes := &cache.ChangeSet{
		Added:     []string{"src/c.js"},
		Deleted:   []string{"src/b.js"},
		Unchanged: []string{"src/a.js"},
	}
	result, err := b.BuildIncremental(context.Background(), first.Graph, changes)
	require.NoError(t, err)

	g := result.Graph
	assert.Equal(t, 2, g.Len())
	_, ok := g.Node("src/b.js")
	assert.False(t, ok)

	// The kept node was re-resolved against the new file set.
	a, ok := g.Node("src/a.js")
	require.True(t, ok)
	assert.Equal(t, resolve.StatusUnresolved, a.Edges[0].Status)

	c, ok := g.Node("src/c.js")
	require.True(t, ok)
	assert.Equal(t, "src/a.js", c.Edges[0].Resolved)
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 1, result.CacheMisses)
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/a.js":     "import b from './b'\nimport u from './util'\n",
		"src/b.js":     "import u from './util'\n",
		"src/util.js":  "export default {}\n",
		"src/extra.py": "import os\n",
	})

	b := testBuilder(t, dir, WithWorkers(3))
	first, err := b.Build(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := b.Build(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first.Graph.Files(), again.Graph.Files())
		assert.Equal(t, first.Graph.Broken(), again.Graph.Broken())
		assert.Equal(t, first.Graph.ResolvedEdgeCount(), again.Graph.ResolvedEdgeCount())
	}
}

func TestBuilder_Build_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"src/a.js": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testBuilder(t, dir).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
