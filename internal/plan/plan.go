// Package plan turns restructuring intents (remove a folder, rewrite
// imports, move a file) into line-precise mutation plans. Planning is
// read-only: a plan describes edits, deletes, and moves but never touches
// the filesystem itself.
package plan

import (
	"fmt"
	"sort"
	"strings"
)

// RewriteMode controls what happens to an import line pointing at a
// removed or rewritten target.
type RewriteMode string

const (
	ModeComment RewriteMode = "comment"
	ModeRemove  RewriteMode = "remove"
)

// OpKind is the kind of a planned operation.
type OpKind string

const (
	OpEditFile   OpKind = "edit-file"
	OpDeleteFile OpKind = "delete-file"
	OpMoveFile   OpKind = "move-file"
)

// LineEdit is one verified, 1-based line replacement or deletion. Old is
// the exact line content the plan was computed against; execution must
// refuse the edit if the line has drifted.
type LineEdit struct {
	Line   int
	Old    string
	New    string
	Delete bool
}

// Op is one planned operation. Edits for a single file are grouped into
// one Op so they can be applied bottom-up without line numbers shifting.
type Op struct {
	Kind    OpKind
	Path    string
	NewPath string     // move only
	Edits   []LineEdit // edit only, sorted by descending line
}

// Flag marks a spot the planner refused to rewrite automatically.
type Flag struct {
	File   string
	Line   int
	Reason string
}

// MutationPlan is an ordered set of operations plus the full list of paths
// whose pre-images must be captured before execution. Capture always
// covers every path an operation touches.
type MutationPlan struct {
	Description string
	Ops         []Op
	Capture     []string
	Flagged     []Flag
}

// Empty reports whether the plan has no operations.
func (p *MutationPlan) Empty() bool { return len(p.Ops) == 0 }

func (p *MutationPlan) addCapture(paths ...string) {
	for _, path := range paths {
		found := false
		for _, existing := range p.Capture {
			if existing == path {
				found = true
				break
			}
		}
		if !found {
			p.Capture = append(p.Capture, path)
		}
	}
}

func (p *MutationPlan) flag(file string, line int, format string, args ...interface{}) {
	p.Flagged = append(p.Flagged, Flag{File: file, Line: line, Reason: fmt.Sprintf(format, args...)})
}

// sortEdits orders edits by descending line so deletions can be applied
// in place.
func sortEdits(edits []LineEdit) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].Line > edits[j].Line })
}

// commentOut rewrites a source line into a commented-out one with a
// trailing marker identifying the tool.
func commentOut(prefix, line string) string {
	return prefix + " " + line + "  " + prefix + " disabled by codesweep"
}

// firstLine returns raw up to its first newline.
func firstLine(raw string) string {
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		return raw[:i]
	}
	return raw
}
