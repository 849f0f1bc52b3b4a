package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type javaExtractor struct {
	*treeSitterExtractor
}

func newJavaExtractor() *javaExtractor {
	return &javaExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(java.Language()),
			tag:      lang.Java,
		},
	}
}

// Extract finds `import a.b.C;` declarations. Wildcard imports record the
// package path without the trailing asterisk.
func (e *javaExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			if n.Kind() != "import_declaration" {
				return true
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(uint(i))
				kind := child.Kind()
				if kind == "scoped_identifier" || kind == "identifier" {
					target := strings.TrimSuffix(nodeText(child, source), ".*")
					imports = record(imports, target, startLine(n), lines)
					break
				}
			}
			return true
		})
	})

	return imports, nil
}
