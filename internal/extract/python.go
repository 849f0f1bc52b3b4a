package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/mvp-joe/codesweep/internal/lang"
)

type pythonExtractor struct {
	*treeSitterExtractor
}

func newPythonExtractor() *pythonExtractor {
	return &pythonExtractor{
		treeSitterExtractor: &treeSitterExtractor{
			language: sitter.NewLanguage(python.Language()),
			tag:      lang.Python,
		},
	}
}

// Extract finds `import a.b` and `from a.b import c` statements. Only the
// module part is recorded: that is the file the statement depends on.
func (e *pythonExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	var imports []RawImport

	e.parse(source, func(root *sitter.Node, lines []string) {
		walkTree(root, func(n *sitter.Node) bool {
			switch n.Kind() {
			case "import_statement":
				for i := 0; i < int(n.ChildCount()); i++ {
					child := n.Child(uint(i))
					switch child.Kind() {
					case "dotted_name":
						imports = record(imports, nodeText(child, source), startLine(n), lines)
					case "aliased_import":
						if name := child.ChildByFieldName("name"); name != nil {
							imports = record(imports, nodeText(name, source), startLine(n), lines)
						}
					}
				}
			case "import_from_statement":
				// module_name is a dotted_name or relative_import (".utils").
				if mod := n.ChildByFieldName("module_name"); mod != nil {
					imports = record(imports, nodeText(mod, source), startLine(n), lines)
				}
			}
			return true
		})
	})

	return imports, nil
}
