package plan

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/mvp-joe/codesweep/internal/extract"
	"github.com/mvp-joe/codesweep/internal/graph"
	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/resolve"
)

// Planner builds mutation plans from an import graph. It verifies every
// planned line edit against current file content via the shared line
// cache; a line that no longer matches the scanned import is flagged for
// manual review instead of being edited blind.
type Planner struct {
	g        *graph.Graph
	resolver *resolve.Resolver
	lines    *graph.FileLines
}

// NewPlanner creates a planner over a scanned graph.
func NewPlanner(g *graph.Graph, resolver *resolve.Resolver, lines *graph.FileLines) *Planner {
	return &Planner{g: g, resolver: resolver, lines: lines}
}

// RemoveFolder plans deletion of every file under dir plus an edit for
// every import into the subtree from outside it.
func (p *Planner) RemoveFolder(dir string, mode RewriteMode) (*MutationPlan, error) {
	dir = resolve.CleanPath(dir)
	targets := p.g.FilesUnder(dir)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no scanned files under %s", dir)
	}

	plan := &MutationPlan{Description: fmt.Sprintf("remove folder %s (%d files, %s imports)", dir, len(targets), mode)}

	inside := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		inside[t] = struct{}{}
	}

	edits, err := p.referrerEdits(plan, targets, mode, inside)
	if err != nil {
		return nil, err
	}
	plan.Ops = append(plan.Ops, edits...)

	for _, t := range targets {
		plan.Ops = append(plan.Ops, Op{Kind: OpDeleteFile, Path: t})
		plan.addCapture(t)
	}
	return plan, nil
}

// RewriteImports plans edits for every import into targetDir without
// deleting anything.
func (p *Planner) RewriteImports(targetDir string, mode RewriteMode) (*MutationPlan, error) {
	targetDir = resolve.CleanPath(targetDir)
	targets := p.g.FilesUnder(targetDir)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no scanned files under %s", targetDir)
	}

	plan := &MutationPlan{Description: fmt.Sprintf("%s imports of %s", mode, targetDir)}
	edits, err := p.referrerEdits(plan, targets, mode, nil)
	if err != nil {
		return nil, err
	}
	plan.Ops = append(plan.Ops, edits...)
	return plan, nil
}

// referrerEdits collects one edit Op per referrer file for every edge into
// targets, skipping referrers in the excluded set. Edges sharing a source
// line collapse into a single edit: the line is commented or deleted once.
func (p *Planner) referrerEdits(plan *MutationPlan, targets []string, mode RewriteMode, exclude map[string]struct{}) ([]Op, error) {
	type lineKey struct {
		file string
		line int
	}
	perFile := make(map[string][]LineEdit)
	seen := make(map[lineKey]struct{})

	for _, target := range targets {
		for _, e := range p.g.ReferrerEdges(target) {
			if exclude != nil {
				if _, skip := exclude[e.From]; skip {
					continue
				}
			}
			key := lineKey{e.From, e.Line}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			edit, ok := p.verifiedEdit(plan, e, mode)
			if !ok {
				continue
			}
			perFile[e.From] = append(perFile[e.From], edit)
		}
	}

	files := make([]string, 0, len(perFile))
	for f := range perFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var ops []Op
	for _, f := range files {
		edits := perFile[f]
		sortEdits(edits)
		ops = append(ops, Op{Kind: OpEditFile, Path: f, Edits: edits})
		plan.addCapture(f)
	}
	return ops, nil
}

// verifiedEdit checks the recorded import line against current file
// content and produces the edit for the configured mode. Multi-line
// imports and drifted lines are flagged, not guessed at.
func (p *Planner) verifiedEdit(plan *MutationPlan, e graph.ImportEdge, mode RewriteMode) (LineEdit, bool) {
	if strings.Contains(e.Raw, "\n") {
		plan.flag(e.From, e.Line, "multi-line import of %q needs manual review", e.Target)
		return LineEdit{}, false
	}

	current, ok := p.currentLine(plan, e.From, e.Line)
	if !ok {
		return LineEdit{}, false
	}
	if !strings.Contains(current, firstLine(e.Raw)) {
		plan.flag(e.From, e.Line, "line no longer matches scanned import of %q, re-scan needed", e.Target)
		return LineEdit{}, false
	}

	node, _ := p.g.Node(e.From)
	edit := LineEdit{Line: e.Line, Old: current}
	if mode == ModeRemove {
		edit.Delete = true
	} else {
		edit.New = commentOut(lang.CommentPrefix(node.Language), current)
	}
	return edit, true
}

func (p *Planner) currentLine(plan *MutationPlan, file string, line int) (string, bool) {
	lines, err := p.lines.Lines(file)
	if err != nil {
		plan.flag(file, line, "unreadable: %v", err)
		return "", false
	}
	if line < 1 || line > len(lines) {
		plan.flag(file, line, "line out of range, re-scan needed")
		return "", false
	}
	return lines[line-1], true
}

// MoveFile plans a rename plus rewritten import lines in every referrer,
// and rewrites the moved file's own relative imports for its new location.
// Any import text that cannot be rewritten unambiguously is flagged.
func (p *Planner) MoveFile(oldPath, newPath string) (*MutationPlan, error) {
	oldPath = resolve.CleanPath(oldPath)
	newPath = resolve.CleanPath(newPath)
	node, ok := p.g.Node(oldPath)
	if !ok {
		return nil, fmt.Errorf("%s is not in the scanned graph", oldPath)
	}
	if _, exists := p.g.Node(newPath); exists {
		return nil, fmt.Errorf("%s already exists", newPath)
	}

	plan := &MutationPlan{Description: fmt.Sprintf("move %s to %s", oldPath, newPath)}

	// Let relative targets resolve against the destination while planning.
	index := p.resolver.Index()
	index.Add(newPath)
	defer index.Remove(newPath)

	perFile := make(map[string][]LineEdit)
	for _, e := range p.g.ReferrerEdges(oldPath) {
		edit, ok := p.rewriteEdit(plan, e, oldPath, newPath)
		if ok {
			perFile[e.From] = append(perFile[e.From], edit)
		}
	}

	files := make([]string, 0, len(perFile))
	for f := range perFile {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		edits := perFile[f]
		sortEdits(edits)
		plan.Ops = append(plan.Ops, Op{Kind: OpEditFile, Path: f, Edits: edits})
		plan.addCapture(f)
	}

	plan.Ops = append(plan.Ops, Op{Kind: OpMoveFile, Path: oldPath, NewPath: newPath})
	plan.addCapture(oldPath, newPath)

	if selfEdits := p.selfEdits(plan, node, newPath); len(selfEdits) > 0 {
		sortEdits(selfEdits)
		plan.Ops = append(plan.Ops, Op{Kind: OpEditFile, Path: newPath, Edits: selfEdits})
	}
	return plan, nil
}

// rewriteEdit produces the edited import line in a referrer so it points
// at newPath instead of oldPath.
func (p *Planner) rewriteEdit(plan *MutationPlan, e graph.ImportEdge, oldPath, newPath string) (LineEdit, bool) {
	if strings.Contains(e.Raw, "\n") {
		plan.flag(e.From, e.Line, "multi-line import of %q needs manual review", e.Target)
		return LineEdit{}, false
	}

	fromNode, _ := p.g.Node(e.From)
	newTarget, ok := p.newImportTarget(plan, e, fromNode.Language, newPath)
	if !ok {
		return LineEdit{}, false
	}

	current, ok := p.currentLine(plan, e.From, e.Line)
	if !ok {
		return LineEdit{}, false
	}
	if !strings.Contains(current, firstLine(e.Raw)) {
		plan.flag(e.From, e.Line, "line no longer matches scanned import of %q, re-scan needed", e.Target)
		return LineEdit{}, false
	}
	if strings.Count(current, e.Target) != 1 {
		plan.flag(e.From, e.Line, "import path %q appears %d times on the line, cannot rewrite unambiguously",
			e.Target, strings.Count(current, e.Target))
		return LineEdit{}, false
	}

	return LineEdit{
		Line: e.Line,
		Old:  current,
		New:  strings.Replace(current, e.Target, newTarget, 1),
	}, true
}

// newImportTarget computes what the import text should become for a
// referrer once the target lives at newPath, and verifies the rewritten
// target actually resolves there.
func (p *Planner) newImportTarget(plan *MutationPlan, e graph.ImportEdge, fromLang lang.Language, newPath string) (string, bool) {
	var newTarget string
	switch fromLang {
	case lang.JavaScript, lang.TypeScript, lang.PHP:
		newTarget = relativeTarget(e.From, newPath, !hasKnownExt(e.Target))
	case lang.C:
		newTarget = relativeTarget(e.From, newPath, false)
	case lang.Ruby:
		if strings.Contains(e.Raw, "require_relative") {
			newTarget = relativeTarget(e.From, newPath, true)
			newTarget = strings.TrimPrefix(newTarget, "./")
		} else {
			plan.flag(e.From, e.Line, "ruby require of %q is load-path dependent, manual review", e.Target)
			return "", false
		}
	case lang.Python:
		if strings.HasPrefix(e.Target, ".") {
			plan.flag(e.From, e.Line, "relative python import of %q needs manual review", e.Target)
			return "", false
		}
		newTarget = dottedTarget(p.resolver.Index().Roots(), newPath, ".py")
	case lang.Java:
		newTarget = dottedTarget(p.resolver.Index().Roots(), newPath, ".java")
	default:
		plan.flag(e.From, e.Line, "cannot rewrite %s import of %q automatically", fromLang, e.Target)
		return "", false
	}
	if newTarget == "" {
		plan.flag(e.From, e.Line, "cannot derive new import path for %q", e.Target)
		return "", false
	}

	resolved, status := p.resolver.Resolve(
		rawImport(newTarget, e), e.From, fromLang)
	if status != resolve.StatusResolved || resolved != newPath {
		plan.flag(e.From, e.Line, "rewritten import %q would not resolve to %s, manual review", newTarget, newPath)
		return "", false
	}
	return newTarget, true
}

// selfEdits rewrites the moved file's own relative imports so they keep
// resolving from the new location. Non-relative imports are untouched;
// relative ones that cannot be rewritten are flagged.
func (p *Planner) selfEdits(plan *MutationPlan, node *graph.FileNode, newPath string) []LineEdit {
	var edits []LineEdit
	for _, e := range node.Edges {
		if e.Status != resolve.StatusResolved || !relativeImport(e, node.Language) {
			continue
		}
		if strings.Contains(e.Raw, "\n") {
			plan.flag(node.Path, e.Line, "multi-line import of %q needs manual review after move", e.Target)
			continue
		}

		var newTarget string
		switch node.Language {
		case lang.JavaScript, lang.TypeScript, lang.PHP:
			newTarget = relativeFrom(newPath, e.Resolved, !hasKnownExt(e.Target))
		case lang.C:
			newTarget = relativeFrom(newPath, e.Resolved, false)
		case lang.Ruby:
			newTarget = strings.TrimPrefix(relativeFrom(newPath, e.Resolved, true), "./")
		default:
			plan.flag(node.Path, e.Line, "relative %s import of %q needs manual review after move", node.Language, e.Target)
			continue
		}
		if newTarget == e.Target {
			continue
		}

		current, ok := p.currentLine(plan, node.Path, e.Line)
		if !ok {
			continue
		}
		if !strings.Contains(current, firstLine(e.Raw)) || strings.Count(current, e.Target) != 1 {
			plan.flag(node.Path, e.Line, "cannot rewrite import of %q unambiguously after move", e.Target)
			continue
		}
		edits = append(edits, LineEdit{
			Line: e.Line,
			Old:  current,
			New:  strings.Replace(current, e.Target, newTarget, 1),
		})
	}
	return edits
}

func relativeImport(e graph.ImportEdge, l lang.Language) bool {
	switch l {
	case lang.JavaScript, lang.TypeScript, lang.PHP:
		return strings.HasPrefix(e.Target, "./") || strings.HasPrefix(e.Target, "../")
	case lang.C:
		return strings.HasPrefix(e.Raw, "#include \"")
	case lang.Ruby:
		return strings.Contains(e.Raw, "require_relative")
	default:
		return false
	}
}

func rawImport(target string, e graph.ImportEdge) extract.RawImport {
	return extract.RawImport{
		Target: target,
		Line:   e.Line,
		Raw:    strings.Replace(e.Raw, e.Target, target, 1),
	}
}

// relativeTarget computes the import text from e.From's directory to
// newPath; dropExt strips the extension for languages that import without
// one.
func relativeTarget(from, newPath string, dropExt bool) string {
	return relativeFrom(from, newPath, dropExt)
}

// relativeFrom computes a ./-style relative path from the directory of
// from to target.
func relativeFrom(from, target string, dropExt bool) string {
	fromDir := path.Dir(from)
	rel := relPath(fromDir, target)
	if rel == "" {
		return ""
	}
	if dropExt {
		rel = strings.TrimSuffix(rel, path.Ext(rel))
	}
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

// relPath is a slash-path relative computation: both inputs are clean
// project-relative paths.
func relPath(fromDir, target string) string {
	if fromDir == "." {
		return target
	}
	fromParts := strings.Split(fromDir, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(fromParts) && common < len(targetParts)-1 && fromParts[common] == targetParts[common] {
		common++
	}

	var out []string
	for i := common; i < len(fromParts); i++ {
		out = append(out, "..")
	}
	out = append(out, targetParts[common:]...)
	return strings.Join(out, "/")
}

// dottedTarget converts a path under one of the roots into a dotted module
// path, stripping ext.
func dottedTarget(roots []string, p, ext string) string {
	trimmed := strings.TrimSuffix(p, ext)
	if trimmed == p {
		return ""
	}
	for _, root := range roots {
		prefix := strings.TrimSuffix(root, "/") + "/"
		if strings.HasPrefix(trimmed, prefix) {
			return strings.ReplaceAll(strings.TrimPrefix(trimmed, prefix), "/", ".")
		}
	}
	return strings.ReplaceAll(trimmed, "/", ".")
}

// hasKnownExt reports whether the import text already carries a file
// extension.
func hasKnownExt(target string) bool {
	return path.Ext(target) != ""
}
