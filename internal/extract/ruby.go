package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type rubyExtractor struct {
	*treeSitterExtractor
}

func newRubyExtractor() *rubyExtractor {
	return &rubyExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(ruby.Language()),
			tag:      lang.Ruby,
		},
	}
}

// Extract finds require and require_relative calls with a literal string
// argument. The resolver tells the two forms apart by the recorded line.
func (e *rubyExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			if n.Kind() != "call" {
				return true
			}
			method := n.ChildByFieldName("method")
			if method == nil {
				return true
			}
			name := nodeText(method, source)
			if name != "require" && name != "require_relative" {
				return true
			}

			args := n.ChildByFieldName("arguments")
			if args == nil {
				return true
			}
			for i := 0; i < int(args.ChildCount()); i++ {
				child := args.Child(uint(i))
				if child.Kind() == "string" {
					imports = record(imports, stripQuotes(nodeText(child, source)), startLine(n), lines)
					break
				}
			}
			return true
		})
	})

	return imports, nil
}
