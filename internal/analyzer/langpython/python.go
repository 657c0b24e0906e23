// Package langpython implements the Python language analyzer: def/async def
// and class-method extraction, import/import-from statements and call
// sites, using an underscore-prefix visibility rule with dunder methods
// treated as public.
package langpython

import (
	"os"
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/types"
)

const language = "python"

var extensions = []string{".py", ".pyi", ".pyw"}

var fallback = analyzer.FallbackPatterns{
	FuncPattern: regexp.MustCompile(`^\s*(?:(?P<async>async)\s+)?def\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`),
	TypePattern: regexp.MustCompile(`^\s*class\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`),
	IsPublic:    IsPublic,
}

// IsPublic reports Python's visibility convention: names not starting with
// "_" are public, except dunder names (e.g. __init__), which are public
// despite the leading underscores.
func IsPublic(name string) bool {
	if !strings.HasPrefix(name, "_") {
		return true
	}
	if len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return true
	}
	return false
}

// Analyzer implements analyzer.Analyzer for Python.
type Analyzer struct {
	parser *tree_sitter.Parser
}

func New() *Analyzer {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_python.Language())
	_ = p.SetLanguage(lang)
	return &Analyzer{parser: p}
}

func (a *Analyzer) Language() string     { return language }
func (a *Analyzer) Extensions() []string { return extensions }

func (a *Analyzer) Analyze(path string, text []byte) types.FileAnalysis {
	size, modTime := statOrNow(path, text)

	tree, ok := analyzer.SafeParse("analyzer.python", path, a.parser, text)
	if !ok || tree.RootNode() == nil || tree.RootNode().ChildCount() == 0 {
		return analyzer.ExtractFallback(path, language, text, size, modTime, fallback)
	}
	root := tree.RootNode()

	w := &walker{content: text}
	w.walk(root, "")

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

func (w *walker) walk(node *tree_sitter.Node, receiver string) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_definition":
		w.functions = append(w.functions, w.parseFunction(node, receiver))
		return // nested functions are independent; still descend for calls
	case "class_definition":
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = analyzer.NodeText(n, w.content)
		}
		w.structs = append(w.structs, types.StructSignature{
			Name:      name,
			IsPublic:  IsPublic(name),
			StartLine: analyzer.NodeLine(node),
			EndLine:   analyzer.NodeEndLine(node),
		})
		for _, c := range analyzer.Children(node) {
			w.walk(c, name)
		}
		return
	case "import_statement", "import_from_statement":
		w.imports = append(w.imports, w.parseImport(node))
	case "call":
		if call, ok := w.parseCall(node); ok {
			w.calls = append(w.calls, call)
		}
	}
	for _, c := range analyzer.Children(node) {
		w.walk(c, receiver)
	}
}

func (w *walker) parseFunction(node *tree_sitter.Node, receiver string) types.FunctionSignature {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = analyzer.NodeText(n, w.content)
	}
	isAsync := false
	for _, c := range analyzer.Children(node) {
		if c.Kind() == "async" {
			isAsync = true
			break
		}
	}

	var params []types.Parameter
	if p := node.ChildByFieldName("parameters"); p != nil {
		for _, c := range analyzer.Children(p) {
			params = append(params, parseParameter(c, w.content)...)
		}
	}

	returnType := ""
	if r := node.ChildByFieldName("return_type"); r != nil {
		returnType = analyzer.NodeText(r, w.content)
	}

	for _, c := range analyzer.Children(node) {
		w.walk(c, receiver)
	}

	return types.FunctionSignature{
		Name:       name,
		Receiver:   receiver,
		Parameters: params,
		ReturnType: returnType,
		IsPublic:   IsPublic(name),
		IsAsync:    isAsync,
		StartLine:  analyzer.NodeLine(node),
		EndLine:    analyzer.NodeEndLine(node),
	}
}

func parseParameter(node *tree_sitter.Node, content []byte) []types.Parameter {
	switch node.Kind() {
	case "identifier":
		return []types.Parameter{{Name: analyzer.NodeText(node, content)}}
	case "typed_parameter":
		typ := ""
		if t := node.ChildByFieldName("type"); t != nil {
			typ = analyzer.NodeText(t, content)
		}
		name := ""
		for _, c := range analyzer.Children(node) {
			if c.Kind() == "identifier" {
				name = analyzer.NodeText(c, content)
				break
			}
		}
		return []types.Parameter{{Name: name, Type: typ}}
	case "default_parameter", "typed_default_parameter":
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = analyzer.NodeText(n, content)
		}
		typ := ""
		if t := node.ChildByFieldName("type"); t != nil {
			typ = analyzer.NodeText(t, content)
		}
		def := ""
		if v := node.ChildByFieldName("value"); v != nil {
			def = analyzer.NodeText(v, content)
		}
		return []types.Parameter{{Name: name, Type: typ, Default: def, HasDefault: true}}
	case "list_splat_pattern", "dictionary_splat_pattern":
		return []types.Parameter{{Name: analyzer.NodeText(node, content)}}
	}
	return nil
}

func (w *walker) parseImport(node *tree_sitter.Node) types.ImportStatement {
	text := strings.TrimSpace(analyzer.NodeText(node, w.content))
	line := analyzer.NodeLine(node)

	if node.Kind() == "import_from_statement" {
		rest := strings.TrimSpace(strings.TrimPrefix(text, "from"))
		parts := strings.SplitN(rest, "import", 2)
		module := strings.TrimSpace(parts[0])
		var items []string
		if len(parts) == 2 {
			for _, item := range strings.Split(parts[1], ",") {
				item = strings.TrimSpace(item)
				if item != "" {
					items = append(items, item)
				}
			}
		}
		return types.ImportStatement{
			ModulePath: module,
			Items:      items,
			IsRelative: strings.HasPrefix(module, "."),
			Line:       line,
		}
	}

	rest := strings.TrimSpace(strings.TrimPrefix(text, "import"))
	alias := ""
	if idx := strings.Index(rest, " as "); idx >= 0 {
		alias = strings.TrimSpace(rest[idx+4:])
		rest = strings.TrimSpace(rest[:idx])
	}
	return types.ImportStatement{
		ModulePath: rest,
		Alias:      alias,
		IsRelative: strings.HasPrefix(rest, "."),
		Line:       line,
	}
}

func (w *walker) parseCall(node *tree_sitter.Node) (types.FunctionCall, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return types.FunctionCall{}, false
	}
	switch fn.Kind() {
	case "identifier":
		return types.FunctionCall{
			Callee: analyzer.NodeText(fn, w.content),
			Line:   analyzer.NodeLine(node),
			Column: analyzer.NodeColumn(node),
		}, true
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		obj := fn.ChildByFieldName("object")
		if attr == nil {
			return types.FunctionCall{}, false
		}
		return types.FunctionCall{
			Callee:   analyzer.NodeText(attr, w.content),
			Receiver: analyzer.NodeText(obj, w.content),
			Line:     analyzer.NodeLine(node),
			Column:   analyzer.NodeColumn(node),
		}, true
	}
	return types.FunctionCall{}, false
}

func statOrNow(path string, text []byte) (int64, time.Time) {
	if info, err := os.Stat(path); err == nil {
		return info.Size(), info.ModTime()
	}
	return int64(len(text)), time.Now()
}
