// Package langrust implements the Rust language analyzer: fn/impl/trait
// function extraction, struct field extraction, use-declarations and call
// sites (pub keyword for visibility, async keyword, const/extern fn
// variants).
package langrust

import (
	"os"
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/types"
)

const language = "rust"

var extensions = []string{".rs"}

var fallback = analyzer.FallbackPatterns{
	FuncPattern: regexp.MustCompile(`^\s*(?P<pub>pub\s+)?(?:(?P<async>async)\s+)?(?:const\s+|extern\s+(?:"[^"]*"\s+)?|unsafe\s+)*fn\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`),
	TypePattern: regexp.MustCompile(`^\s*(?P<pub>pub\s+)?struct\s+(?P<name>[A-Za-z_][A-Za-z0-9_]*)`),
}

// Analyzer implements analyzer.Analyzer for Rust.
type Analyzer struct {
	parser *tree_sitter.Parser
}

// New builds a Rust analyzer. The underlying tree-sitter parser is created
// eagerly and reused across Analyze calls. The registry holds one instance,
// which the scanner's worker pool calls from several goroutines at once;
// analyzer.SafeParse serializes the calls on this one parser, and the tree
// walk that follows runs in parallel.
func New() *Analyzer {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_rust.Language())
	_ = p.SetLanguage(lang)
	return &Analyzer{parser: p}
}

func (a *Analyzer) Language() string     { return language }
func (a *Analyzer) Extensions() []string { return extensions }

func (a *Analyzer) Analyze(path string, text []byte) types.FileAnalysis {
	size, modTime := statOrNow(path, text)

	tree, ok := analyzer.SafeParse("analyzer.rust", path, a.parser, text)
	if !ok || tree.RootNode() == nil || tree.RootNode().ChildCount() == 0 {
		return analyzer.ExtractFallback(path, language, text, size, modTime, fallback)
	}
	root := tree.RootNode()

	w := &walker{content: text}
	w.walk(root, "")

	var parseErrors []types.ParseError
	if root.HasError() {
		parseErrors = append(parseErrors, types.ParseError{
			Line:     1,
			Column:   1,
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
	case "function_item":
		w.functions = append(w.functions, w.parseFunction(node, receiver))
	case "impl_item":
		recv := ""
		if t := node.ChildByFieldName("type"); t != nil {
			recv = analyzer.NodeText(t, w.content)
		}
		for _, c := range analyzer.Children(node) {
			w.walk(c, recv)
		}
		return
	case "trait_item":
		recv := ""
		if n := node.ChildByFieldName("name"); n != nil {
			recv = analyzer.NodeText(n, w.content)
		}
		for _, c := range analyzer.Children(node) {
			w.walk(c, recv)
		}
		return
	case "struct_item":
		w.structs = append(w.structs, w.parseStruct(node))
	case "use_declaration":
		w.imports = append(w.imports, w.parseUse(node))
	case "call_expression":
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
	isPublic, isAsync := false, false
	for _, c := range analyzer.Children(node) {
		switch c.Kind() {
		case "visibility_modifier":
			isPublic = true
		case "async":
			isAsync = true
		}
		if c.Kind() == "function_modifiers" {
			text := analyzer.NodeText(c, w.content)
			if strings.Contains(text, "async") {
				isAsync = true
			}
		}
	}

	var params []types.Parameter
	if p := node.ChildByFieldName("parameters"); p != nil {
		for _, c := range analyzer.Children(p) {
			if c.Kind() != "parameter" && c.Kind() != "self_parameter" {
				continue
			}
			params = append(params, parseParameter(c, w.content))
		}
	}

	returnType := ""
	if r := node.ChildByFieldName("return_type"); r != nil {
		returnType = analyzer.NodeText(r, w.content)
	}

	return types.FunctionSignature{
		Name:       name,
		Receiver:   receiver,
		Parameters: params,
		ReturnType: returnType,
		IsPublic:   isPublic,
		IsAsync:    isAsync,
		StartLine:  analyzer.NodeLine(node),
		EndLine:    analyzer.NodeEndLine(node),
	}
}

func parseParameter(node *tree_sitter.Node, content []byte) types.Parameter {
	if node.Kind() == "self_parameter" {
		return types.Parameter{Name: analyzer.NodeText(node, content)}
	}
	pattern := node.ChildByFieldName("pattern")
	name, mutable := "", false
	if pattern != nil {
		if pattern.Kind() == "mut_pattern" {
			mutable = true
			if inner := analyzer.Children(pattern); len(inner) > 0 {
				name = analyzer.NodeText(inner[len(inner)-1], content)
			}
		} else {
			name = analyzer.NodeText(pattern, content)
		}
	}
	typ := ""
	if t := node.ChildByFieldName("type"); t != nil {
		typ = analyzer.NodeText(t, content)
	}
	return types.Parameter{Name: name, Type: typ, Mutable: mutable}
}

func (w *walker) parseStruct(node *tree_sitter.Node) types.StructSignature {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = analyzer.NodeText(n, w.content)
	}
	isPublic := hasVisibility(node, w.content)

	var fields []types.StructField
	if body := node.ChildByFieldName("body"); body != nil {
		for _, c := range analyzer.Children(body) {
			if c.Kind() != "field_declaration" {
				continue
			}
			fname := ""
			if n := c.ChildByFieldName("name"); n != nil {
				fname = analyzer.NodeText(n, w.content)
			}
			ftype := ""
			if t := c.ChildByFieldName("type"); t != nil {
				ftype = analyzer.NodeText(t, w.content)
			}
			fields = append(fields, types.StructField{
				Name:     fname,
				Type:     ftype,
				IsPublic: hasVisibility(c, w.content),
			})
		}
	}

	return types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  isPublic,
		StartLine: analyzer.NodeLine(node),
		EndLine:   analyzer.NodeEndLine(node),
	}
}

func hasVisibility(node *tree_sitter.Node, content []byte) bool {
	for _, c := range analyzer.Children(node) {
		if c.Kind() == "visibility_modifier" {
			return true
		}
	}
	return false
}

func (w *walker) parseUse(node *tree_sitter.Node) types.ImportStatement {
	text := strings.TrimSpace(analyzer.NodeText(node, w.content))
	text = strings.TrimPrefix(text, "use")
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")

	alias := ""
	if idx := strings.LastIndex(text, " as "); idx >= 0 {
		alias = strings.TrimSpace(text[idx+4:])
		text = strings.TrimSpace(text[:idx])
	}

	var items []string
	modulePath := text
	if idx := strings.Index(text, "{"); idx >= 0 {
		modulePath = strings.TrimSuffix(strings.TrimSpace(text[:idx]), "::")
		inner := strings.TrimSuffix(strings.TrimPrefix(text[idx:], "{"), "}")
		for _, item := range strings.Split(inner, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				items = append(items, item)
			}
		}
	}

	return types.ImportStatement{
		ModulePath: modulePath,
		Items:      items,
		Alias:      alias,
		IsRelative: strings.HasPrefix(modulePath, "self::") || strings.HasPrefix(modulePath, "super::") || strings.HasPrefix(modulePath, "crate::"),
		Line:       analyzer.NodeLine(node),
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
	case "field_expression":
		field := fn.ChildByFieldName("field")
		value := fn.ChildByFieldName("value")
		if field == nil {
			return types.FunctionCall{}, false
		}
		return types.FunctionCall{
			Callee:   analyzer.NodeText(field, w.content),
			Receiver: analyzer.NodeText(value, w.content),
			Line:     analyzer.NodeLine(node),
			Column:   analyzer.NodeColumn(node),
		}, true
	case "scoped_identifier":
		return types.FunctionCall{
			Callee: analyzer.NodeText(fn, w.content),
			Line:   analyzer.NodeLine(node),
			Column: analyzer.NodeColumn(node),
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
