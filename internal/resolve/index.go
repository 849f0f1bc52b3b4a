package resolve

import (
	"path"
	"sort"
	"strings"
)

// Index is the set of files a scan discovered, keyed by slash-separated
// project-relative path, plus the configured source roots in declaration
// order. Resolution consults this index instead of the live filesystem so a
// resolver call is deterministic for a given scan.
type Index struct {
	roots []string
	files map[string]struct{}
}

// NewIndex creates an index for the given source roots. Root order matters:
// the first configured root wins ties.
func NewIndex(roots []string) *Index {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, CleanPath(r))
	}
	return &Index{
		roots: cleaned,
		files: make(map[string]struct{}),
	}
}

// Roots returns the configured roots in declaration order.
func (ix *Index) Roots() []string {
	out := make([]string, len(ix.roots))
	copy(out, ix.roots)
	return out
}

// Add records a discovered file.
func (ix *Index) Add(p string) {
	ix.files[CleanPath(p)] = struct{}{}
}

// Remove drops a file from the index.
func (ix *Index) Remove(p string) {
	delete(ix.files, CleanPath(p))
}

// Has reports whether a project-relative path was discovered.
func (ix *Index) Has(p string) bool {
	_, ok := ix.files[CleanPath(p)]
	return ok
}

// Len returns the number of indexed files.
func (ix *Index) Len() int { return len(ix.files) }

// Files returns all indexed paths, sorted.
func (ix *Index) Files() []string {
	out := make([]string, 0, len(ix.files))
	for p := range ix.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FilesUnder returns all indexed paths inside dir, sorted.
func (ix *Index) FilesUnder(dir string) []string {
	dir = CleanPath(dir)
	prefix := dir + "/"
	var out []string
	for p := range ix.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// CleanPath normalizes to a slash-separated, Cleaned, relative-style
// path. User-supplied paths go through it before matching graph keys.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}
