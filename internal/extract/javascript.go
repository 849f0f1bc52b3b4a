package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

// jsExtractor handles both JavaScript and TypeScript. Plain JS and JSX parse
// under the TSX grammar; .ts/.tsx use the TypeScript grammar.
type jsExtractor struct {
	*treeSitterExtractor
}

func newJSExtractor(tag lang.Language) *jsExtractor {
	grammar := typescript.LanguageTypescript()
	if tag == lang.JavaScript {
		grammar = typescript.LanguageTSX()
	}
	return &jsExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(grammar),
			tag:      tag,
		},
	}
}

// Extract finds import/export-from statements, require() calls, and dynamic
// import() calls.
func (e *jsExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "import_statement", "export_statement":
				if src := n.ChildByFieldName("source"); src != nil {
					imports = record(imports, stripQuotes(nodeText(src, source)), startLine(src), lines)
				}
			case "call_expression":
				if target, ok := e.callTarget(n, source); ok {
					imports = record(imports, target, startLine(n), lines)
				}
			}
			return true
		})
	})

	return imports, nil
}

// callTarget returns the string argument of a require() or dynamic import()
// call, if the call has that shape.
func (e *jsExtractor) callTarget(n *sitter.Node, source []byte) (string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}

	switch fn.Kind() {
	case "identifier":
		if nodeText(fn, source) != "require" {
			return "", false
		}
	case "import":
		// dynamic import()
	default:
		return "", false
	}

	args := n.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(uint(i))
		if child.Kind() == "string" {
			return stripQuotes(nodeText(child, source)), true
		}
	}
	return "", false
}
