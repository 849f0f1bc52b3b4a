package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type phpExtractor struct {
	*treeSitterExtractor
}

func newPHPExtractor() *phpExtractor {
	return &phpExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(php.LanguagePHP()),
			tag:      lang.PHP,
		},
	}
}

// Extract finds require/require_once/include/include_once expressions with a
// literal string argument. Dynamically-built paths are left alone.
func (e *phpExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "require_expression", "require_once_expression",
				"include_expression", "include_once_expression":
			default:
				return true
			}

			// First string child is the path; parenthesized forms nest it.
			var target string
			walkTree(n, func(inner *sitter.Node) bool {
				if target != "" {
					return false
				}
				if inner.Kind() == "string" || inner.Kind() == "encapsed_string" {
					target = stripQuotes(nodeText(inner, source))
					return false
				}
				return true
			})
			if target != "" {
				imports = record(imports, target, startLine(n), lines)
			}
			return true
		})
	})

	return imports, nil
}
