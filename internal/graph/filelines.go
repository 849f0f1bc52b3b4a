package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maypok86/otter"
)

// FileLines serves file contents split into lines, backed by a bounded LRU
// so repeated plan verification over the same files stays cheap. Entries
// must be invalidated after mutations.
type FileLines struct {
	rootDir string
	cache   otter.Cache[string, []string]
}

// NewFileLines creates a line cache holding at most capacity files.
func NewFileLines(rootDir string, capacity int) (*FileLines, error) {
	c, err := otter.MustBuilder[string, []string](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create file line cache: %w", err)
	}
	return &FileLines{rootDir: rootDir, cache: c}, nil
}

// Lines returns the lines of the project-relative file, without trailing
// newlines. Line numbers are 1-based indexes into the returned slice.
func (fl *FileLines) Lines(rel string) ([]string, error) {
	if lines, ok := fl.cache.Get(rel); ok {
		return lines, nil
	}

	data, err := os.ReadFile(filepath.Join(fl.rootDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	lines := splitLines(string(data))
	fl.cache.Set(rel, lines)
	return lines, nil
}

// Invalidate drops the cached lines for a file.
func (fl *FileLines) Invalidate(rel string) {
	fl.cache.Delete(rel)
}

// Close releases the cache.
func (fl *FileLines) Close() {
	fl.cache.Close()
}

// splitLines splits on \n and strips a trailing \r from each line. A file
// with a trailing newline does not produce a phantom empty last line.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
