package extract

import (
	"go/parser"
	"go/token"
	"strings"

	"github.com/mvp-joe/codesweep/internal/lang"
)

// goExtractor uses go/parser rather than tree-sitter: the standard library
// parser gives exact import spec positions for free.
type goExtractor struct{}

func newGoExtractor() *goExtractor { return &goExtractor{} }

func (e *goExtractor) Language() lang.Language { return lang.Go }

// Extract finds single and block import specs. Files that fail to parse
// yield no imports rather than an error.
func (e *goExtractor) Extract(path string, source []byte) ([]RawImport, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.ImportsOnly)
	if file == nil {
		// Unparseable Go is a skip, not a scan failure.
		_ = err
		return nil, nil
	}

	lines := strings.Split(string(source), "\n")

	var imports []RawImport
	for _, spec := range file.Imports {
		target := strings.Trim(spec.Path.Value, `"`)
		line := fset.Position(spec.Path.Pos()).Line
		imports = record(imports, target, line, lines)
	}
	return imports, nil
}
