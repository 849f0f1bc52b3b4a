// Package snapshot is the only component that touches the filesystem
// destructively. Every mutation plan runs as a captured-then-applied
// transaction: the pre-image of every touched path is taken before the
// first operation, any mid-plan failure rolls the already-applied
// operations back from those pre-images, and only fully-applied plans are
// recorded in the bounded undo history.
package snapshot

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/codesweep/internal/graph"
	"github.com/mvp-joe/codesweep/internal/plan"
)

// ErrNothingToUndo is returned by Undo on an empty history.
var ErrNothingToUndo = errors.New("nothing to undo")

// DefaultDepth is the default undo history bound.
const DefaultDepth = 12

// preImage is an in-memory capture of one path taken before mutation.
type preImage struct {
	capture Capture
	content []byte
}

// Manager executes mutation plans transactionally and maintains the undo
// history. Execution is strictly sequential; there is no cancellation once
// capture has begun.
type Manager struct {
	projectRoot string
	store       *Store
	depth       int
	lines       *graph.FileLines
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDepth bounds the undo history; the oldest entry is evicted beyond it.
func WithDepth(depth int) ManagerOption {
	return func(m *Manager) {
		if depth > 0 {
			m.depth = depth
		}
	}
}

// WithLineCache invalidates cached file lines for every mutated path.
func WithLineCache(lines *graph.FileLines) ManagerOption {
	return func(m *Manager) { m.lines = lines }
}

// NewManager opens the snapshot store at storeDir for the project rooted
// at projectRoot.
func NewManager(projectRoot, storeDir string, opts ...ManagerOption) (*Manager, error) {
	store, err := NewStore(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	m := &Manager{projectRoot: projectRoot, store: store, depth: DefaultDepth}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// History returns the undo history, newest first.
func (m *Manager) History() []Summary {
	return m.store.List()
}

// Execute runs a plan to completion or full rollback. On success the undo
// entry is recorded in history and returned; a failed plan is rolled back
// from its pre-images and never recorded.
func (m *Manager) Execute(p *plan.MutationPlan) (*Entry, error) {
	if p.Empty() {
		return nil, errors.New("plan has no operations")
	}

	images, err := m.capture(p.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture pre-images: %w", err)
	}

	for i, op := range p.Ops {
		if err := m.applyOp(op); err != nil {
			rollbackErr := m.restore(images)
			if rollbackErr != nil {
				return nil, fmt.Errorf("operation %d (%s %s) failed: %w; rollback also failed: %v",
					i, op.Kind, op.Path, err, rollbackErr)
			}
			return nil, fmt.Errorf("operation %d (%s %s) failed, all changes rolled back: %w", i, op.Kind, op.Path, err)
		}
	}

	entry := m.newEntry(p.Description, false, images)
	if err := m.persist(entry, images); err != nil {
		// An applied mutation with no undo entry would be irreversible;
		// take the changes back instead.
		_ = m.store.Delete(entry.ID)
		if rollbackErr := m.restore(images); rollbackErr != nil {
			return nil, fmt.Errorf("recording undo entry failed: %w; rollback also failed: %v", err, rollbackErr)
		}
		return nil, fmt.Errorf("recording undo entry failed, all changes rolled back: %w", err)
	}

	m.invalidateLines(images)
	log.Printf("snapshot: applied %q, undo entry %s (%d files captured)", p.Description, entry.ID, len(entry.Captures))
	return entry, nil
}

// Undo reverts the most recent history entry, restoring every captured
// pre-image exactly. Undo itself runs under the same captured-then-applied
// discipline, so a failed undo restores the pre-undo state.
func (m *Manager) Undo() (*Entry, error) {
	history := m.store.List()
	if len(history) == 0 {
		return nil, ErrNothingToUndo
	}
	entry, err := m.store.Load(history[0].ID)
	if err != nil {
		return nil, fmt.Errorf("load undo entry: %w", err)
	}

	paths := make([]string, 0, len(entry.Captures))
	for _, c := range entry.Captures {
		paths = append(paths, c.Path)
	}
	current, err := m.capture(paths)
	if err != nil {
		return nil, fmt.Errorf("capture current state before undo: %w", err)
	}

	stored, err := m.loadImages(entry)
	if err != nil {
		return nil, fmt.Errorf("load pre-images for undo: %w", err)
	}
	if err := m.restore(stored); err != nil {
		if rollbackErr := m.restore(current); rollbackErr != nil {
			return nil, fmt.Errorf("undo failed: %w; restoring pre-undo state also failed: %v", err, rollbackErr)
		}
		return nil, fmt.Errorf("undo failed, pre-undo state restored: %w", err)
	}

	if err := m.store.Delete(entry.ID); err != nil {
		return nil, fmt.Errorf("undo applied but removing history entry failed: %w", err)
	}
	m.invalidateLines(stored)
	log.Printf("snapshot: undid %q (%s)", entry.Description, entry.ID)
	return entry, nil
}

// Checkpoint records a manual snapshot of the given paths with no
// associated mutation. Undoing it restores the paths to this state.
func (m *Manager) Checkpoint(description string, paths []string) (*Entry, error) {
	if len(paths) == 0 {
		return nil, errors.New("checkpoint needs at least one path")
	}
	images, err := m.capture(paths)
	if err != nil {
		return nil, fmt.Errorf("capture checkpoint: %w", err)
	}
	entry := m.newEntry(description, true, images)
	if err := m.persist(entry, images); err != nil {
		return nil, fmt.Errorf("record checkpoint: %w", err)
	}
	log.Printf("snapshot: checkpoint %q (%s, %d files)", description, entry.ID, len(entry.Captures))
	return entry, nil
}

func (m *Manager) newEntry(description string, manual bool, images []preImage) *Entry {
	entry := &Entry{
		ID:          uuid.NewString(),
		Description: description,
		CreatedAt:   time.Now(),
		Manual:      manual,
	}
	for _, img := range images {
		entry.Captures = append(entry.Captures, img.capture)
	}
	return entry
}

func (m *Manager) persist(entry *Entry, images []preImage) error {
	contents := make(map[string][]byte, len(images))
	for _, img := range images {
		if img.capture.Existed {
			contents[img.capture.ContentHash] = img.content
		}
	}
	if err := m.store.Save(entry, contents); err != nil {
		return err
	}
	return m.evict()
}

// evict drops the oldest entries beyond the configured depth.
func (m *Manager) evict() error {
	history := m.store.List()
	for len(history) > m.depth {
		oldest := history[len(history)-1]
		if err := m.store.Delete(oldest.ID); err != nil {
			return fmt.Errorf("evict entry %s: %w", oldest.ID, err)
		}
		history = history[:len(history)-1]
	}
	return nil
}

// capture takes in-memory pre-images of every path, existing or not.
func (m *Manager) capture(paths []string) ([]preImage, error) {
	images := make([]preImage, 0, len(paths))
	for _, rel := range paths {
		abs := m.abs(rel)
		content, err := os.ReadFile(abs)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read %s: %w", rel, err)
			}
			images = append(images, preImage{capture: Capture{Path: rel}})
			continue
		}
		images = append(images, preImage{
			capture: Capture{
				Path:        rel,
				Existed:     true,
				ContentHash: ContentHash(content),
				Size:        len(content),
			},
			content: content,
		})
	}
	return images, nil
}

// loadImages materializes an entry's pre-images from the object store.
func (m *Manager) loadImages(entry *Entry) ([]preImage, error) {
	images := make([]preImage, 0, len(entry.Captures))
	for _, c := range entry.Captures {
		img := preImage{capture: c}
		if c.Existed {
			content, err := m.store.ReadObject(c.ContentHash)
			if err != nil {
				return nil, fmt.Errorf("read object for %s: %w", c.Path, err)
			}
			img.content = content
		}
		images = append(images, img)
	}
	return images, nil
}

// restore writes every pre-image back: recreating files that existed and
// deleting ones that did not.
func (m *Manager) restore(images []preImage) error {
	var firstErr error
	for _, img := range images {
		abs := m.abs(img.capture.Path)
		var err error
		if img.capture.Existed {
			if err = os.MkdirAll(filepath.Dir(abs), 0o755); err == nil {
				err = os.WriteFile(abs, img.content, 0o644)
			}
		} else {
			err = os.Remove(abs)
			if os.IsNotExist(err) {
				err = nil
			}
			m.pruneEmptyDirs(filepath.Dir(abs))
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("restore %s: %w", img.capture.Path, err)
		}
	}
	return firstErr
}

func (m *Manager) applyOp(op plan.Op) error {
	switch op.Kind {
	case plan.OpEditFile:
		return m.applyEdits(op.Path, op.Edits)
	case plan.OpDeleteFile:
		abs := m.abs(op.Path)
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("delete %s: %w", op.Path, err)
		}
		m.pruneEmptyDirs(filepath.Dir(abs))
		return nil
	case plan.OpMoveFile:
		newAbs := m.abs(op.NewPath)
		if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", op.NewPath, err)
		}
		if _, err := os.Stat(newAbs); err == nil {
			return fmt.Errorf("move target %s already exists", op.NewPath)
		}
		if err := os.Rename(m.abs(op.Path), newAbs); err != nil {
			return fmt.Errorf("move %s to %s: %w", op.Path, op.NewPath, err)
		}
		m.pruneEmptyDirs(filepath.Dir(m.abs(op.Path)))
		return nil
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// applyEdits applies line edits bottom-up, refusing any line that no
// longer matches its planned pre-image.
func (m *Manager) applyEdits(rel string, edits []plan.LineEdit) error {
	abs := m.abs(rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	trailingNewline := strings.HasSuffix(string(data), "\n")
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	// Line endings are kept aside: planned pre-images carry no carriage
	// returns, and untouched CRLF lines must round-trip byte-exact.
	ends := make([]string, len(lines))
	for i, line := range lines {
		if strings.HasSuffix(line, "\r") {
			lines[i] = strings.TrimSuffix(line, "\r")
			ends[i] = "\r"
		}
	}

	for _, edit := range edits {
		if edit.Line < 1 || edit.Line > len(lines) {
			return fmt.Errorf("%s: line %d out of range", rel, edit.Line)
		}
		if lines[edit.Line-1] != edit.Old {
			return fmt.Errorf("%s:%d changed since planning, refusing to edit", rel, edit.Line)
		}
		if edit.Delete {
			lines = append(lines[:edit.Line-1], lines[edit.Line:]...)
			ends = append(ends[:edit.Line-1], ends[edit.Line:]...)
		} else {
			lines[edit.Line-1] = edit.New
		}
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		b.WriteString(ends[i])
	}
	out := b.String()
	if trailingNewline && out != "" {
		out += "\n"
	}
	if err := os.WriteFile(abs, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// pruneEmptyDirs removes now-empty directories up to the project root.
func (m *Manager) pruneEmptyDirs(dir string) {
	root := filepath.Clean(m.projectRoot)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (m *Manager) invalidateLines(images []preImage) {
	if m.lines == nil {
		return
	}
	for _, img := range images {
		m.lines.Invalidate(img.capture.Path)
	}
}

func (m *Manager) abs(rel string) string {
	return filepath.Join(m.projectRoot, filepath.FromSlash(rel))
}
