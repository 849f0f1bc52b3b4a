// Package lang maps file paths to language tags using their extension.
// The extension table is configuration data; unknown extensions are simply
// not classified and stay out of the import graph.
package lang

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Language identifies a supported source language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Java       Language = "java"
	C          Language = "c"
	Go         Language = "go"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Rust       Language = "rust"

	// Unknown marks files whose extension has no language mapping.
	Unknown Language = ""
)

// All lists every supported language tag.
func All() []Language {
	return []Language{JavaScript, TypeScript, Python, Java, C, Go, PHP, Ruby, Rust}
}

// DefaultExtensions returns the default language→extensions table.
// C++ extensions map to the c tag: include extraction only needs the
// preprocessor nodes, which parse the same way.
func DefaultExtensions() map[string][]string {
	return map[string][]string{
		string(JavaScript): {".js", ".jsx", ".mjs", ".cjs"},
		string(TypeScript): {".ts", ".tsx"},
		string(Python):     {".py"},
		string(Java):       {".java"},
		string(C):          {".c", ".cpp", ".cc", ".cxx", ".h", ".hpp"},
		string(Go):         {".go"},
		string(PHP):        {".php"},
		string(Ruby):       {".rb"},
		string(Rust):       {".rs"},
	}
}

// Classifier is a pure extension→language lookup built from a config table.
type Classifier struct {
	byExt  map[string]Language
	byLang map[Language][]string
}

// NewClassifier builds a classifier from a language→extensions table.
// Rejects unknown language tags and duplicate extension mappings.
func NewClassifier(table map[string][]string) (*Classifier, error) {
	known := make(map[Language]bool)
	for _, l := range All() {
		known[l] = true
	}

	c := &Classifier{
		byExt:  make(map[string]Language),
		byLang: make(map[Language][]string),
	}

	// Deterministic iteration so duplicate-extension errors are stable.
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		l := Language(name)
		if !known[l] {
			return nil, fmt.Errorf("unknown language tag %q in extension table", name)
		}
		for _, ext := range table[name] {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				return nil, fmt.Errorf("extension %q for language %q must start with a dot", ext, name)
			}
			if prev, ok := c.byExt[ext]; ok && prev != l {
				return nil, fmt.Errorf("extension %q mapped to both %q and %q", ext, prev, l)
			}
			c.byExt[ext] = l
			c.byLang[l] = append(c.byLang[l], ext)
		}
	}

	return c, nil
}

// Classify returns the language tag for a file path, or Unknown.
func (c *Classifier) Classify(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Unknown
	}
	return c.byExt[ext]
}

// Extensions returns the configured extensions for a language, in table order.
// The resolver uses these to expand extension-less import targets.
func (c *Classifier) Extensions(l Language) []string {
	return c.byLang[l]
}

// CommentPrefix returns the line-comment marker used when commenting out an
// import in a file of the given language.
func CommentPrefix(l Language) string {
	switch l {
	case Python, Ruby:
		return "#"
	default:
		return "//"
	}
}
