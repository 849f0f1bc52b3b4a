// Package graph holds the cross-language import graph: one node per scanned
// file, directed edges for resolved imports, and a reverse index answering
// "who imports this file". The reverse index is owned here and kept
// consistent with forward edges through a single update path; consumers get
// copies, never the live maps.
package graph

import (
	"sort"
	"strings"
	"time"

	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// ImportEdge is one import statement, owned by its source node. Raw and Line
// pin the exact statement so the planner can rewrite it without a blind
// text search.
type ImportEdge struct {
	From     string         // source file path
	Target   string         // target as written in source
	Raw      string         // exact source line
	Line     int            // 1-based line number
	Resolved string         // project path when Status is StatusResolved
	Status   resolve.Status // resolved, unresolved (broken), or external
}

// FileNode is one scanned file.
type FileNode struct {
	Path      string
	Language  lang.Language
	Hash      string // sha256 of contents
	ScannedAt time.Time
	Edges     []ImportEdge
}

// BrokenImport is an unresolved project-local import, reported with its
// exact location.
type BrokenImport struct {
	File   string
	Target string
	Line   int
	Raw    string
}

// Graph is the import graph plus its reverse index.
type Graph struct {
	nodes   map[string]*FileNode
	reverse map[string]map[string]struct{} // target path -> set of source paths
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*FileNode),
		reverse: make(map[string]map[string]struct{}),
	}
}

// AddNode inserts or replaces a file node. This is the only write path:
// reverse entries for the node's previous edges are dropped and entries for
// the new edges added in the same call, so forward and reverse stay
// consistent.
func (g *Graph) AddNode(n *FileNode) {
	if old, ok := g.nodes[n.Path]; ok {
		g.dropReverse(old)
	}
	g.nodes[n.Path] = n
	for _, e := range n.Edges {
		if e.Status != resolve.StatusResolved {
			continue
		}
		set, ok := g.reverse[e.Resolved]
		if !ok {
			set = make(map[string]struct{})
			g.reverse[e.Resolved] = set
		}
		set[n.Path] = struct{}{}
	}
}

// RemoveNode deletes a file node and its reverse entries.
func (g *Graph) RemoveNode(path string) {
	n, ok := g.nodes[path]
	if !ok {
		return
	}
	g.dropReverse(n)
	delete(g.nodes, path)
}

func (g *Graph) dropReverse(n *FileNode) {
	for _, e := range n.Edges {
		if e.Status != resolve.StatusResolved {
			continue
		}
		if set, ok := g.reverse[e.Resolved]; ok {
			delete(set, n.Path)
			if len(set) == 0 {
				delete(g.reverse, e.Resolved)
			}
		}
	}
}

// Node returns the node for a path.
func (g *Graph) Node(path string) (*FileNode, bool) {
	n, ok := g.nodes[path]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Files returns every node path, sorted.
func (g *Graph) Files() []string {
	out := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FilesUnder returns node paths inside dir, sorted.
func (g *Graph) FilesUnder(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for p := range g.nodes {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Referrers returns the files holding a resolved edge into target, sorted.
func (g *Graph) Referrers(target string) []string {
	set, ok := g.reverse[target]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReferrerEdges returns every resolved edge pointing at target, ordered by
// source path then line.
func (g *Graph) ReferrerEdges(target string) []ImportEdge {
	var out []ImportEdge
	for _, src := range g.Referrers(target) {
		for _, e := range g.nodes[src].Edges {
			if e.Status == resolve.StatusResolved && e.Resolved == target {
				out = append(out, e)
			}
		}
	}
	return out
}

// Broken returns every unresolved import, ordered by file then line.
func (g *Graph) Broken() []BrokenImport {
	var out []BrokenImport
	for _, p := range g.Files() {
		for _, e := range g.nodes[p].Edges {
			if e.Status == resolve.StatusUnresolved {
				out = append(out, BrokenImport{
					File:   e.From,
					Target: e.Target,
					Line:   e.Line,
					Raw:    e.Raw,
				})
			}
		}
	}
	return out
}

// ResolvedEdgeCount counts resolved edges across the graph.
func (g *Graph) ResolvedEdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		for _, e := range n.Edges {
			if e.Status == resolve.StatusResolved {
				count++
			}
		}
	}
	return count
}
