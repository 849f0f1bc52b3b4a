// Package analyze classifies every file in an import graph as reachable,
// exempt, or dead, and surfaces broken imports.
//
// Dead-file detection is a heuristic, not a proof: generated files,
// dynamically loaded modules, and reflection-style references are known
// sources of false positives. The exemption rules exist to keep the common
// cases (tests, configs, framework entry files) out of the dead list, not
// to make the analysis exact.
package analyze

import (
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"
	"github.com/gobwas/glob"

	"github.com/mvp-joe/codesweep/internal/graph"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// conventionEntryNames are basenames treated as application entry files
// regardless of configuration. They are executed by a runtime or
// framework without anything importing them, so they seed reachability.
var conventionEntryNames = map[string]string{
	"app.py":    "conventional entry file",
	"main.py":   "conventional entry file",
	"index.js":  "conventional entry file",
	"index.ts":  "conventional entry file",
	"server.js": "conventional entry file",
}

// conventionDirs are path segments whose files are loaded by framework
// routing rather than explicit imports. Their files seed reachability
// the same way conventional entry files do.
var conventionDirs = map[string]string{
	"pages":  "framework routing directory",
	"routes": "framework routing directory",
}

// conventionEntry reports whether the file is executed by convention
// rather than imported: named entry files, directory index files, and
// files under framework routing directories.
func conventionEntry(filePath string) (string, bool) {
	base := path.Base(filePath)
	if reason, ok := conventionEntryNames[base]; ok {
		return reason, true
	}
	if strings.HasPrefix(base, "index.") {
		return "directory index file", true
	}
	for _, seg := range strings.Split(path.Dir(filePath), "/") {
		if reason, ok := conventionDirs[seg]; ok {
			return reason, true
		}
	}
	return "", false
}

// Rules is the exemption rule set: configured glob patterns plus built-in
// language and framework conventions. Patterns match either the base name
// or the full project-relative path.
type Rules struct {
	patterns []glob.Glob
	sources  []string
}

// NewRules compiles configured exemption patterns.
func NewRules(patterns []string) (*Rules, error) {
	r := &Rules{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exemption pattern %q: %w", pattern, err)
		}
		r.patterns = append(r.patterns, g)
		r.sources = append(r.sources, pattern)
	}
	return r, nil
}

// Exempt reports whether the path matches an exemption rule, and why.
// Exemptions keep a file out of the dead list without treating it as
// executed; convention entry files are handled by conventionEntry.
func (r *Rules) Exempt(filePath string) (string, bool) {
	base := path.Base(filePath)

	for i, g := range r.patterns {
		if g.Match(base) || g.Match(filePath) {
			return fmt.Sprintf("matches pattern %q", r.sources[i]), true
		}
	}

	if strings.HasSuffix(filePath, ".java") && strings.Contains(filePath, "src/main/") {
		return "java application source root", true
	}
	return "", false
}

// Report is the classification of one scan. Derived, never persisted.
type Report struct {
	Dead      map[string]string // path -> reason
	Reachable map[string]string
	Exempt    map[string]string
	Broken    []graph.BrokenImport
}

// DeadFiles returns the dead paths sorted.
func (r *Report) DeadFiles() []string {
	out := make([]string, 0, len(r.Dead))
	for p := range r.Dead {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Analyze runs reachability over resolved edges and classifies every
// node. The BFS roots are the configured entry points plus every
// convention entry file in the graph, so files used only by an index.js
// or a routing directory stay alive even with nothing configured. Files
// unreached and unexempt are dead; a file with no resolved edges in
// either direction is dead outright unless it is a root or exempt.
func Analyze(g *graph.Graph, entryPoints []string, rules *Rules) (*Report, error) {
	report := &Report{
		Dead:      make(map[string]string),
		Reachable: make(map[string]string),
		Exempt:    make(map[string]string),
		Broken:    g.Broken(),
	}

	dg := dgraph.New(dgraph.StringHash, dgraph.Directed())
	for _, f := range g.Files() {
		if err := dg.AddVertex(f); err != nil {
			return nil, fmt.Errorf("failed to add vertex %s: %w", f, err)
		}
	}
	for _, f := range g.Files() {
		n, _ := g.Node(f)
		for _, e := range n.Edges {
			if e.Status != resolve.StatusResolved || e.Resolved == "" || e.Resolved == f {
				continue
			}
			// Resolved targets can point at files excluded from the
			// graph (unreadable or binary); they are not vertices.
			if _, ok := g.Node(e.Resolved); !ok {
				continue
			}
			err := dg.AddEdge(f, e.Resolved)
			if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", f, e.Resolved, err)
			}
		}
	}

	roots := make(map[string]string)
	for _, entry := range entryPoints {
		if _, ok := g.Node(entry); !ok {
			log.Printf("analyze: entry point %s not in graph, ignoring", entry)
			continue
		}
		roots[entry] = "entry point"
	}
	for _, f := range g.Files() {
		if _, ok := roots[f]; ok {
			continue
		}
		if reason, ok := conventionEntry(f); ok {
			roots[f] = reason
		}
	}

	reached := make(map[string]struct{})
	for root := range roots {
		err := dgraph.BFS(dg, root, func(v string) bool {
			reached[v] = struct{}{}
			return false
		})
		if err != nil {
			return nil, fmt.Errorf("reachability from %s failed: %w", root, err)
		}
	}

	for _, f := range g.Files() {
		if reason, ok := roots[f]; ok {
			report.Reachable[f] = reason
			continue
		}
		if _, ok := reached[f]; ok {
			report.Reachable[f] = "imported from an entry point"
			continue
		}
		if reason, ok := rules.Exempt(f); ok {
			report.Exempt[f] = reason
			continue
		}
		if isolated(g, f) {
			report.Dead[f] = "no resolved imports in either direction"
		} else {
			report.Dead[f] = "unreachable from any entry point"
		}
	}
	return report, nil
}

func isolated(g *graph.Graph, f string) bool {
	if len(g.Referrers(f)) > 0 {
		return false
	}
	n, _ := g.Node(f)
	for _, e := range n.Edges {
		if e.Status == resolve.StatusResolved {
			return false
		}
	}
	return true
}
