package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codesweep/internal/extract"
	"github.com/mvp-joe/codesweep/internal/graph"
	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// Test Plan for Planner:
// 1. RemoveFolder plans deletes for the subtree and comment/remove edits
//    for outside referrers only; capture covers every touched path.
// 2. RewriteImports edits referrers without deleting targets.
// 3. MoveFile rewrites referrer import lines and the moved file's own
//    relative imports, verified through the resolver.
// 4. Drifted lines, multi-line imports, and ambiguous rewrites are
//    flagged, never edited.
// 5. User-supplied paths are normalized before matching graph keys;
//    edges sharing a source line collapse into one edit.

type fixture struct {
	dir      string
	g        *graph.Graph
	resolver *resolve.Resolver
	lines    *graph.FileLines
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()

	classifier, err := lang.NewClassifier(lang.DefaultExtensions())
	require.NoError(t, err)

	index := resolve.NewIndex([]string{"src"})
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
		index.Add(rel)
	}
	resolver := resolve.New(index, classifier)

	g := graph.NewGraph()
	for rel, content := range files {
		language := classifier.Classify(rel)
		extractor, ok := extract.For(language)
		require.True(t, ok, rel)
		imports, err := extractor.Extract(rel, []byte(content))
		require.NoError(t, err)

		node := &graph.FileNode{Path: rel, Language: language}
		for _, imp := range imports {
			resolved, status := resolver.Resolve(imp, rel, language)
			node.Edges = append(node.Edges, graph.ImportEdge{
				From: rel, Target: imp.Target, Raw: imp.Raw, Line: imp.Line,
				Resolved: resolved, Status: status,
			})
		}
		g.AddNode(node)
	}

	lines, err := graph.NewFileLines(dir, 64)
	require.NoError(t, err)
	t.Cleanup(lines.Close)

	return &fixture{dir: dir, g: g, resolver: resolver, lines: lines}
}

func (f *fixture) planner() *Planner {
	return NewPlanner(f.g, f.resolver, f.lines)
}

func opFor(t *testing.T, p *MutationPlan, kind OpKind, path string) Op {
	t.Helper()
	for _, op := range p.Ops {
		if op.Kind == kind && op.Path == path {
			return op
		}
	}
	t.Fatalf("no %s op for %s in plan", kind, path)
	return Op{}
}

func TestPlanner_RemoveFolder_CommentMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":        "import w from './widgets/w'\nconst x = 1\n",
		"src/widgets/w.js":  "import h from './helper'\n",
		"src/widgets/helper.js": "export default 1\n",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeComment)
	require.NoError(t, err)
	assert.Empty(t, plan.Flagged)

	// Inside-subtree referrer (w.js -> helper.js) gets no edit.
	edit := opFor(t, plan, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 1)
	assert.Equal(t, 1, edit.Edits[0].Line)
	assert.Equal(t, "import w from './widgets/w'", edit.Edits[0].Old)
	assert.Equal(t, "// import w from './widgets/w'  // disabled by codesweep", edit.Edits[0].New)
	assert.False(t, edit.Edits[0].Delete)

	opFor(t, plan, OpDeleteFile, "src/widgets/w.js")
	opFor(t, plan, OpDeleteFile, "src/widgets/helper.js")

	assert.ElementsMatch(t, []string{"src/app.js", "src/widgets/w.js", "src/widgets/helper.js"}, plan.Capture)
}

func TestPlanner_RemoveFolder_RemoveMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.py":         "import widgets.w\nprint('hi')\n",
		"src/widgets/w.py":   "x = 1\n",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeRemove)
	require.NoError(t, err)

	edit := opFor(t, plan, OpEditFile, "src/app.py")
	require.Len(t, edit.Edits, 1)
	assert.True(t, edit.Edits[0].Delete)
	assert.Equal(t, "import widgets.w", edit.Edits[0].Old)
}

func TestPlanner_RemoveFolder_PythonCommentPrefix(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.py":       "import widgets.w\n",
		"src/widgets/w.py": "x = 1\n",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeComment)
	require.NoError(t, err)

	edit := opFor(t, plan, OpEditFile, "src/app.py")
	assert.Equal(t, "# import widgets.w  # disabled by codesweep", edit.Edits[0].New)
}

func TestPlanner_PathArgumentsNormalized(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import w from './widgets/w'\n",
		"src/widgets/w.js": "",
	})

	// Shell-style and Windows-style spellings match the graph keys.
	for _, dir := range []string{"./src/widgets", "src/widgets/", `src\widgets`} {
		plan, err := f.planner().RemoveFolder(dir, ModeComment)
		require.NoError(t, err, dir)
		opFor(t, plan, OpDeleteFile, "src/widgets/w.js")
	}

	plan, err := f.planner().MoveFile("./src/widgets/w.js", `src\lib\w.js`)
	require.NoError(t, err)
	mv := opFor(t, plan, OpMoveFile, "src/widgets/w.js")
	assert.Equal(t, "src/lib/w.js", mv.NewPath)
}

func TestPlanner_RemoveFolder_NoFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{"src/a.js": ""})
	_, err := f.planner().RemoveFolder("src/missing", ModeComment)
	assert.Error(t, err)
}

func TestPlanner_RemoveFolder_EditsSortedDescending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import a from './widgets/a'\nimport b from './widgets/b'\n",
		"src/widgets/a.js": "",
		"src/widgets/b.js": "",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeRemove)
	require.NoError(t, err)

	edit := opFor(t, plan, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 2)
	assert.Equal(t, 2, edit.Edits[0].Line)
	assert.Equal(t, 1, edit.Edits[1].Line)
}

func TestPlanner_RemoveFolder_TwoImportsOneLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "const a = require('./widgets/a'); const b = require('./widgets/b');\n",
		"src/widgets/a.js": "",
		"src/widgets/b.js": "",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeComment)
	require.NoError(t, err)
	assert.Empty(t, plan.Flagged)

	// Both edges land on line 1; the line is commented exactly once so
	// the second edit cannot trip the pre-image check at execution.
	edit := opFor(t, plan, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 1)
	assert.Equal(t, 1, edit.Edits[0].Line)

	remove, err := f.planner().RemoveFolder("src/widgets", ModeRemove)
	require.NoError(t, err)
	edit = opFor(t, remove, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 1)
	assert.True(t, edit.Edits[0].Delete)
}

func TestPlanner_RemoveFolder_CRLFReferrer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import w from './widgets/w'\r\nconst x = 1\r\n",
		"src/widgets/w.js": "",
	})

	plan, err := f.planner().RemoveFolder("src/widgets", ModeComment)
	require.NoError(t, err)
	assert.Empty(t, plan.Flagged)

	edit := opFor(t, plan, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 1)
	assert.Equal(t, "import w from './widgets/w'", edit.Edits[0].Old)
}

func TestPlanner_RewriteImports_DoesNotDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import w from './widgets/w'\n",
		"src/widgets/w.js": "",
	})

	plan, err := f.planner().RewriteImports("src/widgets", ModeComment)
	require.NoError(t, err)

	require.Len(t, plan.Ops, 1)
	assert.Equal(t, OpEditFile, plan.Ops[0].Kind)
	assert.Equal(t, []string{"src/app.js"}, plan.Capture)
}

func TestPlanner_DriftedLineIsFlagged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import w from './widgets/w'\n",
		"src/widgets/w.js": "",
	})

	// Content changes after the scan.
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "src", "app.js"), []byte("const nothing = 1\n"), 0o644))

	plan, err := f.planner().RewriteImports("src/widgets", ModeComment)
	require.NoError(t, err)

	assert.True(t, plan.Empty())
	require.Len(t, plan.Flagged, 1)
	assert.Equal(t, "src/app.js", plan.Flagged[0].File)
	assert.Contains(t, plan.Flagged[0].Reason, "re-scan")
}

func TestPlanner_MoveFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":       "import w from './util/w'\n",
		"src/util/w.js":    "import h from './h'\n",
		"src/util/h.js":    "",
	})

	plan, err := f.planner().MoveFile("src/util/w.js", "src/lib/w.js")
	require.NoError(t, err)
	assert.Empty(t, plan.Flagged)

	edit := opFor(t, plan, OpEditFile, "src/app.js")
	require.Len(t, edit.Edits, 1)
	assert.Equal(t, "import w from './lib/w'", edit.Edits[0].New)

	mv := opFor(t, plan, OpMoveFile, "src/util/w.js")
	assert.Equal(t, "src/lib/w.js", mv.NewPath)

	// The moved file's own relative import is rewritten at its new home.
	self := opFor(t, plan, OpEditFile, "src/lib/w.js")
	require.Len(t, self.Edits, 1)
	assert.Equal(t, "import h from '../util/h'", self.Edits[0].New)

	assert.Contains(t, plan.Capture, "src/util/w.js")
	assert.Contains(t, plan.Capture, "src/lib/w.js")
	assert.Contains(t, plan.Capture, "src/app.js")

	// Planning restored the index: the destination is not left behind.
	assert.False(t, f.resolver.Index().Has("src/lib/w.js"))
}

func TestPlanner_MoveFile_PythonReferrer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.py":    "from util.w import thing\n",
		"src/util/w.py": "thing = 1\n",
	})

	plan, err := f.planner().MoveFile("src/util/w.py", "src/lib/w.py")
	require.NoError(t, err)
	assert.Empty(t, plan.Flagged)

	edit := opFor(t, plan, OpEditFile, "src/app.py")
	require.Len(t, edit.Edits, 1)
	assert.Equal(t, "from lib.w import thing", edit.Edits[0].New)
}

func TestPlanner_MoveFile_RelativePythonImportFlagged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/pkg/app.py": "from .w import thing\n",
		"src/pkg/w.py":   "thing = 1\n",
	})

	plan, err := f.planner().MoveFile("src/pkg/w.py", "src/other/w.py")
	require.NoError(t, err)

	require.Len(t, plan.Flagged, 1)
	assert.Contains(t, plan.Flagged[0].Reason, "manual review")
	// The move itself still happens; only the rewrite is withheld.
	opFor(t, plan, OpMoveFile, "src/pkg/w.py")
}

func TestPlanner_MoveFile_AmbiguousLineFlagged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"src/app.js":    "import w from './w'; console.log('./w')\n",
		"src/w.js":      "",
	})

	plan, err := f.planner().MoveFile("src/w.js", "src/lib/w.js")
	require.NoError(t, err)

	require.Len(t, plan.Flagged, 1)
	assert.Contains(t, plan.Flagged[0].Reason, "unambiguously")
}

func TestPlanner_MoveFile_UnknownSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{"src/a.js": ""})
	_, err := f.planner().MoveFile("src/missing.js", "src/b.js")
	assert.Error(t, err)
}
