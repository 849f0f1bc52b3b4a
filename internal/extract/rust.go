package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type rustExtractor struct {
	*treeSitterExtractor
}

func newRustExtractor() *rustExtractor {
	return &rustExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(rust.Language()),
			tag:      lang.Rust,
		},
	}
}

// Extract finds `mod name;` declarations and crate-rooted `use` paths.
// External crate uses are left to the resolver to classify.
func (e *rustExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "mod_item":
				// A mod with a body is inline, not a file reference.
				if n.ChildByFieldName("body") != nil {
					return true
				}
				if name := n.ChildByFieldName("name"); name != nil {
					imports = record(imports, "mod "+nodeText(name, source), startLine(n), lines)
				}
				return false
			case "use_declaration":
				if arg := n.ChildByFieldName("argument"); arg != nil {
					target := usePathPrefix(nodeText(arg, source))
					if strings.HasPrefix(target, "crate::") {
						imports = record(imports, target, startLine(n), lines)
					}
				}
				return false
			}
			return true
		})
	})

	return imports, nil
}

// usePathPrefix reduces a use path to its module prefix: group and glob
// imports keep only the segments before the brace or star.
func usePathPrefix(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "::{"); i >= 0 {
		return s[:i]
	}
	if i := strings.Index(s, "::*"); i >= 0 {
		return s[:i]
	}
	// `use path as alias` keeps the path part.
	if i := strings.Index(s, " as "); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
