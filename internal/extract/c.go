package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type cExtractor struct {
	*treeSitterExtractor
}

func newCExtractor() *cExtractor {
	return &cExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(c.Language()),
			tag:      lang.C,
		},
	}
}

// Extract finds #include directives. Both "header.h" and <header.h> forms
// are recorded; the resolver decides which unresolved forms count as broken.
// C++ sources parse with error nodes under this grammar, but preprocessor
// directives still come through, which is all extraction needs.
func (e *cExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			if n.Kind() != "preproc_include" {
				return true
			}
			if p := n.ChildByFieldName("path"); p != nil {
				target := nodeText(p, source)
				target = stripQuotes(trimAngles(target))
				imports = record(imports, target, startLine(n), lines)
			}
			return true
		})
	})

	return imports, nil
}

// trimAngles removes the <> delimiters of a system include path.
func trimAngles(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}
