package graph

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/codesweep/internal/cache"
	"github.com/mvp-joe/codesweep/internal/extract"
	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// ProgressReporter reports progress during graph building.
type ProgressReporter interface {
	OnScanStart(totalFiles int)
	OnFileScanned(processed, total int, fileName string)
	OnScanComplete(files, resolvedEdges, brokenImports int, duration time.Duration)
}

// ScanResult is a completed build: the graph plus the resolver bound to this
// scan's file index, and cache counters for reporting.
type ScanResult struct {
	Graph       *Graph
	Resolver    *resolve.Resolver
	CacheHits   int
	CacheMisses int
	Skipped     int
}

// Builder walks the configured roots, classifies and extracts every file
// (via the scan cache where valid), and assembles the import graph.
// Extraction runs on a small worker pool; merging into the graph is a
// single mutex-guarded path so forward edges and the reverse index update
// atomically.
type Builder struct {
	rootDir    string
	classifier *lang.Classifier
	roots      []string
	excluded   []glob.Glob
	skip       []glob.Glob
	store      *cache.Store
	progress   ProgressReporter
	workers    int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCache attaches a scan cache. Without one every file is re-extracted.
func WithCache(store *cache.Store) BuilderOption {
	return func(b *Builder) { b.store = store }
}

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) BuilderOption {
	return func(b *Builder) { b.progress = progress }
}

// WithWorkers sets the extraction pool size.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewBuilder creates a graph builder. excludedDirs match directory names or
// root-relative directory paths; skipPatterns match file base names.
func NewBuilder(rootDir string, classifier *lang.Classifier, roots, excludedDirs, skipPatterns []string, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		rootDir:    rootDir,
		classifier: classifier,
		roots:      roots,
		workers:    4,
	}

	for _, pattern := range excludedDirs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid excluded dir pattern %q: %w", pattern, err)
		}
		b.excluded = append(b.excluded, g)
	}
	for _, pattern := range skipPatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid skip pattern %q: %w", pattern, err)
		}
		b.skip = append(b.skip, g)
	}

	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Discover walks the roots and returns the classifiable files as sorted
// project-relative paths.
func (b *Builder) Discover() ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, root := range b.roots {
		absRoot := filepath.Join(b.rootDir, filepath.FromSlash(root))
		info, err := os.Stat(absRoot)
		if err != nil || !info.IsDir() {
			log.Printf("scan: root %s missing, skipping", root)
			continue
		}

		err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Printf("scan: walk error at %s: %v", p, err)
				return nil
			}

			rel, relErr := filepath.Rel(b.rootDir, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if b.matchesAny(b.excluded, d.Name()) || b.matchesAny(b.excluded, rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if b.matchesAny(b.skip, d.Name()) {
				return nil
			}
			if b.classifier.Classify(rel) == lang.Unknown {
				return nil
			}
			if _, dup := seen[rel]; !dup {
				seen[rel] = struct{}{}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk root %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (b *Builder) matchesAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Build performs a full scan. Deterministic for identical filesystem and
// cache state.
func (b *Builder) Build(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	log.Printf("scan: started in %s", b.rootDir)

	files, err := b.Discover()
	if err != nil {
		return nil, err
	}

	index := resolve.NewIndex(b.roots)
	for _, f := range files {
		index.Add(f)
	}
	resolver := resolve.New(index, b.classifier)

	if b.progress != nil {
		b.progress.OnScanStart(len(files))
	}

	result := &ScanResult{Graph: NewGraph(), Resolver: resolver}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed int
	)
	jobs := make(chan string)

	worker := func() {
		defer wg.Done()
		for rel := range jobs {
			select {
			case <-ctx.Done():
				return
			default:
			}

			node, hit, skipped := b.processFile(rel, resolver)

			mu.Lock()
			processed++
			switch {
			case skipped:
				result.Skipped++
			case node != nil:
				result.Graph.AddNode(node)
				if hit {
					result.CacheHits++
				} else {
					result.CacheMisses++
				}
			}
			done, total := processed, len(files)
			mu.Unlock()

			if b.progress != nil {
				b.progress.OnFileScanned(done, total, filepath.Base(rel))
			}
		}
	}

	wg.Add(b.workers)
	for i := 0; i < b.workers; i++ {
		go worker()
	}

feed:
	for _, rel := range files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rel:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	broken := len(result.Graph.Broken())
	if b.progress != nil {
		b.progress.OnScanComplete(result.Graph.Len(), result.Graph.ResolvedEdgeCount(), broken, time.Since(start))
	}
	log.Printf("scan: finished, %d files, %d resolved edges, %d broken imports, %d cache hits, %d misses (%s)",
		result.Graph.Len(), result.Graph.ResolvedEdgeCount(), broken, result.CacheHits, result.CacheMisses, time.Since(start).Round(time.Millisecond))

	return result, nil
}

// BuildIncremental rebuilds from a previous graph and a change set: only
// added and modified files are re-extracted, while every kept node is
// re-resolved against the new file index so removed targets are pruned.
func (b *Builder) BuildIncremental(ctx context.Context, prev *Graph, changes *cache.ChangeSet) (*ScanResult, error) {
	if prev == nil {
		return b.Build(ctx)
	}
	start := time.Now()

	files, err := b.Discover()
	if err != nil {
		return nil, err
	}
	index := resolve.NewIndex(b.roots)
	for _, f := range files {
		index.Add(f)
	}
	resolver := resolve.New(index, b.classifier)

	reExtract := make(map[string]struct{}, len(changes.Added)+len(changes.Modified))
	for _, f := range changes.Added {
		reExtract[f] = struct{}{}
	}
	for _, f := range changes.Modified {
		reExtract[f] = struct{}{}
	}

	result := &ScanResult{Graph: NewGraph(), Resolver: resolver}

	for _, rel := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if _, changed := reExtract[rel]; !changed {
			if old, ok := prev.Node(rel); ok {
				result.Graph.AddNode(b.reresolveNode(old, resolver))
				result.CacheHits++
				continue
			}
		}

		node, hit, skipped := b.processFile(rel, resolver)
		switch {
		case skipped:
			result.Skipped++
		case node != nil:
			result.Graph.AddNode(node)
			if hit {
				result.CacheHits++
			} else {
				result.CacheMisses++
			}
		}
	}

	if b.store != nil {
		for _, rel := range changes.Deleted {
			if err := b.store.Invalidate(rel); err != nil {
				log.Printf("scan: failed to invalidate cache for %s: %v", rel, err)
			}
		}
	}

	log.Printf("scan: incremental finished, %d files (%s)", result.Graph.Len(), time.Since(start).Round(time.Millisecond))
	return result, nil
}

// reresolveNode recomputes edge resolution from raw import data without
// re-extracting. Resolution depends on the whole file set, so a kept node
// can still change when other files come and go.
func (b *Builder) reresolveNode(old *FileNode, resolver *resolve.Resolver) *FileNode {
	node := &FileNode{
		Path:      old.Path,
		Language:  old.Language,
		Hash:      old.Hash,
		ScannedAt: old.ScannedAt,
	}
	for _, e := range old.Edges {
		imp := extract.RawImport{Target: e.Target, Line: e.Line, Raw: e.Raw}
		resolved, status := resolver.Resolve(imp, old.Path, old.Language)
		node.Edges = append(node.Edges, ImportEdge{
			From:     old.Path,
			Target:   e.Target,
			Raw:      e.Raw,
			Line:     e.Line,
			Resolved: resolved,
			Status:   status,
		})
	}
	return node
}

// processFile extracts and resolves one file, via the cache when valid.
// Returns skipped=true for files that cannot be read or decoded.
func (b *Builder) processFile(rel string, resolver *resolve.Resolver) (node *FileNode, cacheHit, skipped bool) {
	language := b.classifier.Classify(rel)
	abs := filepath.Join(b.rootDir, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		log.Printf("scan: skipped %s: %v", rel, err)
		return nil, false, true
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		log.Printf("scan: skipped %s: %v", rel, err)
		return nil, false, true
	}
	if isBinary(data) {
		log.Printf("scan: skipped %s: binary content", rel)
		return nil, false, true
	}

	hash := cache.Hash(data)

	if b.store != nil {
		if entry, ok := b.store.Get(rel, hash, info.ModTime()); ok {
			return b.nodeFromCache(entry, language, resolver), true, false
		}
	}

	extractor, ok := extract.For(language)
	if !ok {
		return nil, false, true
	}
	imports, err := extractor.Extract(rel, data)
	if err != nil {
		log.Printf("scan: skipped %s: %v", rel, err)
		return nil, false, true
	}

	node = &FileNode{
		Path:      rel,
		Language:  language,
		Hash:      hash,
		ScannedAt: time.Now(),
	}
	entry := &cache.Entry{
		Path:     rel,
		Hash:     hash,
		Mtime:    info.ModTime(),
		Language: string(language),
	}

	for _, imp := range imports {
		resolved, status := resolver.Resolve(imp, rel, language)
		if status == resolve.StatusUnresolved {
			log.Printf("scan: unresolved import %q at %s:%d", imp.Target, rel, imp.Line)
		}
		node.Edges = append(node.Edges, ImportEdge{
			From:     rel,
			Target:   imp.Target,
			Raw:      imp.Raw,
			Line:     imp.Line,
			Resolved: resolved,
			Status:   status,
		})
		entry.Imports = append(entry.Imports, cache.Import{
			Target:   imp.Target,
			Raw:      imp.Raw,
			Line:     imp.Line,
			Resolved: resolved,
			Status:   int(status),
		})
	}

	if b.store != nil {
		if err := b.store.Put(entry); err != nil {
			log.Printf("scan: cache write for %s failed: %v", rel, err)
		}
	}
	return node, false, false
}

// nodeFromCache rebuilds a node from a cache entry. Cached resolution is
// reused only while the target still exists; otherwise the raw import is
// re-resolved against the current index.
func (b *Builder) nodeFromCache(entry *cache.Entry, language lang.Language, resolver *resolve.Resolver) *FileNode {
	node := &FileNode{
		Path:      entry.Path,
		Language:  language,
		Hash:      entry.Hash,
		ScannedAt: entry.ScannedAt,
	}
	for _, imp := range entry.Imports {
		edge := ImportEdge{
			From:     entry.Path,
			Target:   imp.Target,
			Raw:      imp.Raw,
			Line:     imp.Line,
			Resolved: imp.Resolved,
			Status:   resolve.Status(imp.Status),
		}
		if edge.Status != resolve.StatusResolved || !resolver.Index().Has(edge.Resolved) {
			edge.Resolved, edge.Status = resolver.Resolve(
				extract.RawImport{Target: imp.Target, Line: imp.Line, Raw: imp.Raw},
				entry.Path, language)
		}
		node.Edges = append(node.Edges, edge)
	}
	return node
}

// isBinary reports whether data looks like non-text content.
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
