// Package extract pulls raw import targets out of source files, one concrete
// extractor per language tag. Extraction is deliberately tolerant: malformed
// or partial statements are skipped rather than reported, since a false
// negative here only weakens a heuristic while a bad match could corrupt an
// unrelated line during rewriting.
package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codesweep/internal/lang"
)

// RawImport is one import statement found in a source file. Raw holds the
// exact source line so the mutation planner can rewrite or remove the line
// without a blind text search.
type RawImport struct {
	Target string // target as written, quotes stripped
	Line   int    // 1-based line number of the statement
	Raw    string // exact text of that source line
}

// Extractor extracts import statements from a single file's contents.
type Extractor interface {
	Language() lang.Language
	Extract(path string, source []byte) ([]RawImport, error)
}

// For returns the extractor for a language tag.
func For(l lang.Language) (Extractor, bool) {
	switch l {
	case lang.JavaScript:
		return newJSExtractor(lang.JavaScript), true
	case lang.TypeScript:
		return newJSExtractor(lang.TypeScript), true
	case lang.Python:
		return newPythonExtractor(), true
	case lang.Java:
		return newJavaExtractor(), true
	case lang.C:
		return newCExtractor(), true
	case lang.Go:
		return newGoExtractor(), true
	case lang.PHP:
		return newPHPExtractor(), true
	case lang.Ruby:
		return newRubyExtractor(), true
	case lang.Rust:
		return newRustExtractor(), true
	default:
		return nil, false
	}
}

// treeSitterExtractor holds the shared tree-sitter plumbing for one grammar.
type treeSitterExtractor struct {
	language *sitter.Language
	tag      lang.Language
}

func (e *treeSitterExtractor) Language() lang.Language { return e.tag }

// parse parses source and hands the root node plus the split lines to visit.
// A nil tree (unparseable input) yields no imports, never an error.
func (e *treeSitterExtractor) parse(source []byte, visit func(root *sitter.Node, lines []string)) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(e.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return
	}
	defer tree.Close()

	visit(tree.RootNode(), strings.Split(string(source), "\n"))
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for
// each node. Returning false from the visitor stops descent into that node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

// nodeText extracts the text content of a tree-sitter node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// lineAt returns the source line for a 1-based line number. The trailing
// carriage return of CRLF files is stripped so recorded lines compare
// equal to the planner's line cache.
func lineAt(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line-1], "\r")
}

// startLine returns the 1-based line a node starts on.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// stripQuotes removes surrounding string delimiters from an import target.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	return strings.TrimSpace(s)
}

// record appends an import if its target is non-empty.
func record(imports []RawImport, target string, line int, lines []string) []RawImport {
	target = strings.TrimSpace(target)
	if target == "" {
		return imports
	}
	return append(imports, RawImport{
		Target: target,
		Line:   line,
		Raw:    lineAt(lines, line),
	})
}
