// Package resolve converts raw import targets into project file paths,
// honoring per-language conventions: relative forms, extension-less imports,
// index files, and dotted module paths against configured source roots. The
// first candidate present in the scan index wins; ties break by root
// declaration order.
package resolve

import (
	"path"
	"strings"

	"github.com/mvp-joe/codesweep/internal/extract"
	"github.com/mvp-joe/codesweep/internal/lang"
)

// Status classifies the outcome of resolving one import.
type Status int

const (
	// StatusResolved means the target file was found in the scan index.
	StatusResolved Status = iota
	// StatusUnresolved means a project-local-looking import had no target
	// on disk: a broken import.
	StatusUnresolved
	// StatusExternal means the import points outside the project (stdlib,
	// package registry) and is not a dead-link candidate.
	StatusExternal
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	case StatusExternal:
		return "external"
	default:
		return "invalid"
	}
}

// externalJavaPrefixes are package roots that are never project files.
var externalJavaPrefixes = []string{"java.", "javax.", "jakarta."}

// Resolver resolves raw imports against a scan index. Resolution is pure:
// identical inputs always produce identical results.
type Resolver struct {
	index      *Index
	classifier *lang.Classifier
}

// New creates a resolver over the given index and extension table.
func New(index *Index, classifier *lang.Classifier) *Resolver {
	return &Resolver{index: index, classifier: classifier}
}

// Index returns the resolver's scan index.
func (r *Resolver) Index() *Index { return r.index }

// Resolve maps a raw import from fromPath to a project file path. The
// returned path is meaningful only when status is StatusResolved.
func (r *Resolver) Resolve(imp extract.RawImport, fromPath string, l lang.Language) (string, Status) {
	target := strings.TrimSpace(imp.Target)
	if target == "" {
		return "", StatusExternal
	}
	fromPath = CleanPath(fromPath)

	switch l {
	case lang.Python:
		return r.resolvePython(target, fromPath)
	case lang.Java:
		return r.resolveJava(target)
	case lang.C:
		return r.resolveC(imp, fromPath)
	case lang.Go:
		return r.resolveGo(target)
	case lang.Ruby:
		return r.resolveRuby(imp, fromPath)
	case lang.Rust:
		return r.resolveRust(target, fromPath)
	default:
		// javascript, typescript, php share path-style resolution.
		return r.resolvePathStyle(target, fromPath, l)
	}
}

// resolvePathStyle handles ./relative, /root-relative, and bare path forms
// for the js/ts/php family.
func (r *Resolver) resolvePathStyle(target, fromPath string, l lang.Language) (string, Status) {
	exts := r.classifier.Extensions(l)

	switch {
	case strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") || target == "." || target == "..":
		base := path.Join(path.Dir(fromPath), target)
		if escapesProject(base) {
			return "", StatusUnresolved
		}
		if p, ok := r.tryFileCandidates(base, exts, true); ok {
			return p, StatusResolved
		}
		return "", StatusUnresolved

	case strings.HasPrefix(target, "/"):
		if p, ok := r.tryAgainstRoots(strings.TrimPrefix(target, "/"), exts, true); ok {
			return p, StatusResolved
		}
		return "", StatusUnresolved

	case strings.Contains(target, "/"):
		if p, ok := r.tryAgainstRoots(target, exts, true); ok {
			return p, StatusResolved
		}
		// Scoped registry packages (@scope/pkg) contain a slash but are
		// not project files.
		if strings.HasPrefix(target, "@") {
			return "", StatusExternal
		}
		return "", StatusUnresolved

	default:
		// Bare name: registry or builtin module.
		if p, ok := r.tryAgainstRoots(target, exts, true); ok {
			return p, StatusResolved
		}
		return "", StatusExternal
	}
}

// resolvePython handles dotted module paths and leading-dot relative imports.
// Within each root a plain module file is tried before a package __init__,
// so `a.py` beats `a/__init__.py` deterministically.
func (r *Resolver) resolvePython(target, fromPath string) (string, Status) {
	if strings.HasPrefix(target, ".") {
		dots := 0
		for dots < len(target) && target[dots] == '.' {
			dots++
		}
		rest := target[dots:]

		base := path.Dir(fromPath)
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		if rest != "" {
			base = path.Join(base, strings.ReplaceAll(rest, ".", "/"))
		}
		if escapesProject(base) {
			return "", StatusUnresolved
		}
		if rest != "" && r.index.Has(base+".py") {
			return CleanPath(base + ".py"), StatusResolved
		}
		if r.index.Has(path.Join(base, "__init__.py")) {
			return CleanPath(path.Join(base, "__init__.py")), StatusResolved
		}
		return "", StatusUnresolved
	}

	modPath := strings.ReplaceAll(target, ".", "/")
	for _, root := range r.index.roots {
		file := path.Join(root, modPath) + ".py"
		if r.index.Has(file) {
			return CleanPath(file), StatusResolved
		}
		pkg := path.Join(root, modPath, "__init__.py")
		if r.index.Has(pkg) {
			return CleanPath(pkg), StatusResolved
		}
	}

	if strings.Contains(target, ".") {
		// Dotted module paths look project-local; a miss is a broken import.
		return "", StatusUnresolved
	}
	return "", StatusExternal
}

// resolveJava maps dotted package paths onto roots. Platform packages are
// external rather than broken.
func (r *Resolver) resolveJava(target string) (string, Status) {
	for _, prefix := range externalJavaPrefixes {
		if strings.HasPrefix(target, prefix) {
			return "", StatusExternal
		}
	}

	modPath := strings.ReplaceAll(target, ".", "/")
	for _, root := range r.index.roots {
		file := path.Join(root, modPath) + ".java"
		if r.index.Has(file) {
			return CleanPath(file), StatusResolved
		}
	}
	if strings.Contains(target, ".") {
		return "", StatusUnresolved
	}
	return "", StatusExternal
}

// resolveC tries the including file's directory, then the roots. Quoted
// includes are project-local by convention; angle includes that do not
// resolve are system headers.
func (r *Resolver) resolveC(imp extract.RawImport, fromPath string) (string, Status) {
	target := imp.Target

	local := path.Join(path.Dir(fromPath), target)
	if !escapesProject(local) && r.index.Has(local) {
		return CleanPath(local), StatusResolved
	}
	if p, ok := r.tryAgainstRoots(target, nil, false); ok {
		return p, StatusResolved
	}

	if strings.Contains(imp.Raw, "<") {
		return "", StatusExternal
	}
	return "", StatusUnresolved
}

// resolveGo maps an import path onto roots, progressively stripping leading
// module-path segments, and lands on the first .go file directly inside the
// package directory. Unresolved Go imports are external: stdlib and module
// dependencies dominate, and the go toolchain already polices the rest.
func (r *Resolver) resolveGo(target string) (string, Status) {
	if !strings.Contains(target, "/") {
		return "", StatusExternal
	}

	segments := strings.Split(target, "/")
	for skip := 0; skip < len(segments); skip++ {
		sub := path.Join(segments[skip:]...)
		for _, root := range r.index.roots {
			dir := path.Join(root, sub)
			if file, ok := r.firstGoFileIn(dir); ok {
				return file, StatusResolved
			}
		}
	}
	return "", StatusExternal
}

func (r *Resolver) firstGoFileIn(dir string) (string, bool) {
	for _, p := range r.index.FilesUnder(dir) {
		if path.Dir(p) == CleanPath(dir) && strings.HasSuffix(p, ".go") {
			return p, true
		}
	}
	return "", false
}

// resolveRuby distinguishes require_relative (importer-relative) from
// require (root-relative, else a gem).
func (r *Resolver) resolveRuby(imp extract.RawImport, fromPath string) (string, Status) {
	target := strings.TrimSuffix(imp.Target, ".rb")

	if strings.Contains(imp.Raw, "require_relative") {
		base := path.Join(path.Dir(fromPath), target)
		if !escapesProject(base) && r.index.Has(base+".rb") {
			return CleanPath(base + ".rb"), StatusResolved
		}
		return "", StatusUnresolved
	}

	for _, root := range r.index.roots {
		file := path.Join(root, target) + ".rb"
		if r.index.Has(file) {
			return CleanPath(file), StatusResolved
		}
	}
	if strings.Contains(target, "/") {
		return "", StatusUnresolved
	}
	return "", StatusExternal
}

// resolveRust handles `mod x;` declarations (sibling x.rs or x/mod.rs) and
// crate-rooted use paths. Both forms are local by definition.
func (r *Resolver) resolveRust(target, fromPath string) (string, Status) {
	if name, ok := strings.CutPrefix(target, "mod "); ok {
		dir := path.Dir(fromPath)
		if r.index.Has(path.Join(dir, name+".rs")) {
			return CleanPath(path.Join(dir, name+".rs")), StatusResolved
		}
		if r.index.Has(path.Join(dir, name, "mod.rs")) {
			return CleanPath(path.Join(dir, name, "mod.rs")), StatusResolved
		}
		return "", StatusUnresolved
	}

	segments := strings.Split(strings.TrimPrefix(target, "crate::"), "::")
	// The last segment may name an item rather than a module; try the full
	// path first, then its parent.
	for end := len(segments); end >= 1; end-- {
		sub := path.Join(segments[:end]...)
		for _, root := range r.index.roots {
			if r.index.Has(path.Join(root, sub) + ".rs") {
				return CleanPath(path.Join(root, sub) + ".rs"), StatusResolved
			}
			if r.index.Has(path.Join(root, sub, "mod.rs")) {
				return CleanPath(path.Join(root, sub, "mod.rs")), StatusResolved
			}
		}
	}
	return "", StatusUnresolved
}

// tryFileCandidates checks base as written, base+ext for each configured
// extension, and base/index+ext when withIndex is set.
func (r *Resolver) tryFileCandidates(base string, exts []string, withIndex bool) (string, bool) {
	base = CleanPath(base)
	if r.index.Has(base) {
		return base, true
	}
	for _, ext := range exts {
		if r.index.Has(base + ext) {
			return base + ext, true
		}
	}
	if withIndex {
		for _, ext := range exts {
			idx := path.Join(base, "index"+ext)
			if r.index.Has(idx) {
				return idx, true
			}
		}
	}
	return "", false
}

// tryAgainstRoots runs tryFileCandidates under each root in order.
func (r *Resolver) tryAgainstRoots(target string, exts []string, withIndex bool) (string, bool) {
	for _, root := range r.index.roots {
		if p, ok := r.tryFileCandidates(path.Join(root, target), exts, withIndex); ok {
			return p, true
		}
	}
	return "", false
}

// escapesProject reports whether a cleaned path climbed out of the project.
func escapesProject(p string) bool {
	p = path.Clean(p)
	return p == ".." || strings.HasPrefix(p, "../")
}
