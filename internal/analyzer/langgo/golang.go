// Package langgo implements the Go language analyzer: func declarations,
// methods with receivers, struct type declarations, imports and call sites.
// Go has no async concept; visibility follows the upper-case-identifier
// export rule.
package langgo

import (
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/types"
)

const language = "go"

var extensions = []string{".go"}

var fallback = analyzer.FallbackPatterns{
	FuncPattern: regexp.MustCompile(`^\s*func\s*(?:\([^)]*\)\s*)?(?P<name>[A-Za-z_][A-Za-z0-9_]*)`),
	TypePattern: regexp.MustCompile(`^\s*type\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)\s+struct`),
	IsPublic:    IsPublic,
}

// IsPublic reports Go's export rule: an identifier starting with an
// upper-case letter is exported.
func IsPublic(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// Analyzer implements analyzer.Analyzer for Go.
type Analyzer struct {
	parser *tree_sitter.Parser
}

func New() *Analyzer {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_go.Language())
	_ = p.SetLanguage(lang)
	return &Analyzer{parser: p}
}

func (a *Analyzer) Language() string     { return language }
func (a *Analyzer) Extensions() []string { return extensions }

func (a *Analyzer) Analyze(path string, text []byte) types.FileAnalysis {
	size, modTime := statOrNow(path, text)

	tree, ok := analyzer.SafeParse("analyzer.go", path, a.parser, text)
	if !ok || tree.RootNode() == nil || tree.RootNode().ChildCount() == 0 {
		return analyzer.ExtractFallback(path, language, text, size, modTime, fallback)
	}
	root := tree.RootNode()

	w := &walker{content: text}
	for _, c := range analyzer.Children(root) {
		w.walkTop(c)
	}

	var parseErrors []types.ParseError
	if root.HasError() {
		parseErrors = append(parseErrors, types.ParseError{
			Line: 1, Column: 1,
			Message:  "source contains syntax errors; partial tree extracted",
			Severity: types.SeverityWarning,
		})
	}

	return types.FileAnalysis{
		Path:        path,
		Language:    language,
		ContentHash: analyzer.ContentHash(text),
		Size:        size,
		ModTime:     modTime,
		Functions:   w.functions,
		Structs:     w.structs,
		Imports:     w.imports,
		Calls:       w.calls,
		ParseErrors: parseErrors,
	}
}

type walker struct {
	content   []byte
	functions []types.FunctionSignature
	structs   []types.StructSignature
	imports   []types.ImportStatement
	calls     []types.FunctionCall
}

func (w *walker) walkTop(node *tree_sitter.Node) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_declaration":
		w.functions = append(w.functions, w.parseFunc(node, ""))
	case "method_declaration":
		recv := ""
		if r := node.ChildByFieldName("receiver"); r != nil {
			recv = receiverType(r, w.content)
		}
		w.functions = append(w.functions, w.parseFunc(node, recv))
	case "type_declaration":
		for _, spec := range analyzer.Children(node) {
			if spec.Kind() != "type_spec" {
				continue
			}
			if t := spec.ChildByFieldName("type"); t != nil && t.Kind() == "struct_type" {
				w.structs = append(w.structs, w.parseStruct(spec, t))
			}
		}
	case "import_declaration":
		w.collectImports(node)
	}
	w.walkCalls(node)
}

func receiverType(params *tree_sitter.Node, content []byte) string {
	for _, p := range analyzer.Children(params) {
		if p.Kind() != "parameter_declaration" {
			continue
		}
		if t := p.ChildByFieldName("type"); t != nil {
			return strings.TrimPrefix(analyzer.NodeText(t, content), "*")
		}
	}
	return ""
}

func (w *walker) parseFunc(node *tree_sitter.Node, receiver string) types.FunctionSignature {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = analyzer.NodeText(n, w.content)
	}
	var params []types.Parameter
	if p := node.ChildByFieldName("parameters"); p != nil {
		for _, c := range analyzer.Children(p) {
			if c.Kind() != "parameter_declaration" {
				continue
			}
			typ := ""
			if t := c.ChildByFieldName("type"); t != nil {
				typ = analyzer.NodeText(t, w.content)
			}
			pname := ""
			if n := c.ChildByFieldName("name"); n != nil {
				pname = analyzer.NodeText(n, w.content)
			}
			params = append(params, types.Parameter{Name: pname, Type: typ})
		}
	}
	returnType := ""
	if r := node.ChildByFieldName("result"); r != nil {
		returnType = analyzer.NodeText(r, w.content)
	}
	return types.FunctionSignature{
		Name:       name,
		Receiver:   receiver,
		Parameters: params,
		ReturnType: returnType,
		IsPublic:   IsPublic(name),
		StartLine:  analyzer.NodeLine(node),
		EndLine:    analyzer.NodeEndLine(node),
	}
}

func (w *walker) parseStruct(spec, structType *tree_sitter.Node) types.StructSignature {
	name := ""
	if n := spec.ChildByFieldName("name"); n != nil {
		name = analyzer.NodeText(n, w.content)
	}
	var fields []types.StructField
	for _, fl := range analyzer.Children(structType) {
		if fl.Kind() != "field_declaration_list" {
			continue
		}
		for _, f := range analyzer.Children(fl) {
			if f.Kind() != "field_declaration" {
				continue
			}
			typ := ""
			if t := f.ChildByFieldName("type"); t != nil {
				typ = analyzer.NodeText(t, w.content)
			}
			for _, n := range analyzer.Children(f) {
				if n.Kind() == "field_identifier" {
					fname := analyzer.NodeText(n, w.content)
					fields = append(fields, types.StructField{
						Name: fname, Type: typ, IsPublic: IsPublic(fname),
					})
				}
			}
		}
	}
	return types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  IsPublic(name),
		StartLine: analyzer.NodeLine(spec),
		EndLine:   analyzer.NodeEndLine(spec),
	}
}

func (w *walker) collectImports(node *tree_sitter.Node) {
	for _, c := range allDescendants(node) {
		if c.Kind() != "import_spec" {
			continue
		}
		path := ""
		if p := c.ChildByFieldName("path"); p != nil {
			path = strings.Trim(analyzer.NodeText(p, w.content), `"`)
		}
		alias := ""
		if n := c.ChildByFieldName("name"); n != nil {
			alias = analyzer.NodeText(n, w.content)
		}
		w.imports = append(w.imports, types.ImportStatement{
			ModulePath: path,
			Alias:      alias,
			IsRelative: strings.HasPrefix(path, "."),
			Line:       analyzer.NodeLine(c),
		})
	}
}

func (w *walker) walkCalls(node *tree_sitter.Node) {
	for _, c := range allDescendants(node) {
		if c.Kind() != "call_expression" {
			continue
		}
		fn := c.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		switch fn.Kind() {
		case "identifier":
			w.calls = append(w.calls, types.FunctionCall{
				Callee: analyzer.NodeText(fn, w.content),
				Line:   analyzer.NodeLine(c),
				Column: analyzer.NodeColumn(c),
			})
		case "selector_expression":
			field := fn.ChildByFieldName("field")
			operand := fn.ChildByFieldName("operand")
			if field == nil {
				continue
			}
			w.calls = append(w.calls, types.FunctionCall{
				Callee:   analyzer.NodeText(field, w.content),
				Receiver: analyzer.NodeText(operand, w.content),
				Line:     analyzer.NodeLine(c),
				Column:   analyzer.NodeColumn(c),
			})
		}
	}
}

func allDescendants(node *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		out = append(out, n)
		for _, c := range analyzer.Children(n) {
			visit(c)
		}
	}
	for _, c := range analyzer.Children(node) {
		visit(c)
	}
	return out
}

func statOrNow(path string, text []byte) (int64, time.Time) {
	if info, err := os.Stat(path); err == nil {
		return info.Size(), info.ModTime()
	}
	return int64(len(text)), time.Now()
}
