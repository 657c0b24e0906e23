// Package langts implements the shared TypeScript/JavaScript analyzer:
// function declarations, arrow functions and function expressions assigned
// to a variable binding (at any nesting depth), class methods and fields,
// imports/exports and call sites, using
// the export keyword / TS access modifiers for visibility and the async
// keyword for the async flag.
package langts

import (
	"os"
	"regexp"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/types"
)

var fallback = analyzer.FallbackPatterns{
	FuncPattern: regexp.MustCompile(`^\s*(?P<pub>export\s+)?(?:default\s+)?(?:(?P<async>async)\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)`),
	TypePattern: regexp.MustCompile(`^\s*(?P<pub>export\s+)?(?:default\s+)?class\s+(?P<name>[A-Za-z_$][A-Za-z0-9_$]*)`),
}

// Analyzer implements analyzer.Analyzer for one of TypeScript, TSX or
// JavaScript; the grammar and reported language name are fixed at
// construction so the registry can own one instance per extension group.
type Analyzer struct {
	lang   string
	exts   []string
	parser *tree_sitter.Parser
}

// NewTypeScript builds the analyzer for .ts/.tsx files.
func NewTypeScript() *Analyzer {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	_ = p.SetLanguage(lang)
	return &Analyzer{lang: "typescript", exts: []string{".ts", ".tsx"}, parser: p}
}

// NewJavaScript builds the analyzer for .js/.jsx files.
func NewJavaScript() *Analyzer {
	p := tree_sitter.NewParser()
	lang := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	_ = p.SetLanguage(lang)
	return &Analyzer{lang: "javascript", exts: []string{".js", ".jsx", ".mjs", ".cjs"}, parser: p}
}

func (a *Analyzer) Language() string     { return a.lang }
func (a *Analyzer) Extensions() []string { return a.exts }

func (a *Analyzer) Analyze(path string, text []byte) types.FileAnalysis {
	size, modTime := statOrNow(path, text)

	tree, ok := analyzer.SafeParse("analyzer."+a.lang, path, a.parser, text)
	if !ok || tree.RootNode() == nil || tree.RootNode().ChildCount() == 0 {
		return analyzer.ExtractFallback(path, a.lang, text, size, modTime, fallback)
	}
	root := tree.RootNode()

	w := &walker{content: text}
	w.walk(root, "", false)

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
		Language:    a.lang,
		ContentHash: analyzer.ContentHash(text),
		Size:        size,
		ModTime:     modTime,
		Functions:   w.functions,
		Structs:     w.structs,
		Imports:     w.imports,
		Exports:     w.exports,
		Calls:       w.calls,
		ParseErrors: parseErrors,
	}
}

type walker struct {
	content   []byte
	functions []types.FunctionSignature
	structs   []types.StructSignature
	imports   []types.ImportStatement
	exports   []types.ExportStatement
	calls     []types.FunctionCall
}

func (w *walker) walk(node *tree_sitter.Node, receiver string, exported bool) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		w.functions = append(w.functions, w.parseFunction(node, receiver, exported))
	case "variable_declarator":
		if v := node.ChildByFieldName("value"); v != nil && (v.Kind() == "arrow_function" || v.Kind() == "function_expression") {
			name := ""
			if n := node.ChildByFieldName("name"); n != nil {
				name = analyzer.NodeText(n, w.content)
			}
			w.functions = append(w.functions, withName(w.parseFunction(v, receiver, exported), name))
		}
	case "method_definition":
		w.functions = append(w.functions, w.parseFunction(node, receiver, exported))
	case "class_declaration":
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = analyzer.NodeText(n, w.content)
		}
		w.structs = append(w.structs, w.parseClass(node, name, exported))
		if body := node.ChildByFieldName("body"); body != nil {
			for _, c := range analyzer.Children(body) {
				w.walk(c, name, false)
			}
		}
		return
	case "export_statement":
		decl := node.ChildByFieldName("declaration")
		w.exports = append(w.exports, w.parseExport(node, decl))
		if decl != nil {
			w.walk(decl, receiver, true)
		}
		for _, c := range analyzer.Children(node) {
			if c == decl {
				continue
			}
			w.walk(c, receiver, exported)
		}
		return
	case "import_statement":
		w.imports = append(w.imports, w.parseImport(node))
	case "call_expression":
		if call, ok := w.parseCall(node); ok {
			w.calls = append(w.calls, call)
		}
	}
	for _, c := range analyzer.Children(node) {
		w.walk(c, receiver, exported)
	}
}

func withName(sig types.FunctionSignature, name string) types.FunctionSignature {
	sig.Name = name
	return sig
}

func (w *walker) parseFunction(node *tree_sitter.Node, receiver string, exported bool) types.FunctionSignature {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = analyzer.NodeText(n, w.content)
	}
	isAsync := false
	isPublic := exported
	for _, c := range analyzer.Children(node) {
		switch c.Kind() {
		case "async":
			isAsync = true
		case "accessibility_modifier":
			isPublic = analyzer.NodeText(c, w.content) == "public"
		}
	}
	if receiver != "" && !isPublic {
		// class members default to public absent an explicit modifier
		hasModifier := false
		for _, c := range analyzer.Children(node) {
			if c.Kind() == "accessibility_modifier" {
				hasModifier = true
			}
		}
		if !hasModifier {
			isPublic = true
		}
	}

	var params []types.Parameter
	paramsNode := node.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = node.ChildByFieldName("parameter")
	}
	if paramsNode != nil {
		for _, c := range analyzer.Children(paramsNode) {
			if p, ok := parseParameter(c, w.content); ok {
				params = append(params, p)
			}
		}
	}

	returnType := ""
	if r := node.ChildByFieldName("return_type"); r != nil {
		returnType = strings.TrimPrefix(analyzer.NodeText(r, w.content), ":")
		returnType = strings.TrimSpace(returnType)
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

func parseParameter(node *tree_sitter.Node, content []byte) (types.Parameter, bool) {
	switch node.Kind() {
	case "identifier", "required_parameter", "optional_parameter":
		name := analyzer.NodeText(node, content)
		typ := ""
		def := ""
		hasDefault := node.Kind() == "optional_parameter"
		if pat := node.ChildByFieldName("pattern"); pat != nil {
			name = analyzer.NodeText(pat, content)
		}
		if t := node.ChildByFieldName("type"); t != nil {
			typ = strings.TrimSpace(strings.TrimPrefix(analyzer.NodeText(t, content), ":"))
		}
		if v := node.ChildByFieldName("value"); v != nil {
			def = analyzer.NodeText(v, content)
			hasDefault = true
		}
		return types.Parameter{Name: name, Type: typ, Default: def, HasDefault: hasDefault}, true
	case "assignment_pattern":
		name := ""
		if l := node.ChildByFieldName("left"); l != nil {
			name = analyzer.NodeText(l, content)
		}
		def := ""
		if r := node.ChildByFieldName("right"); r != nil {
			def = analyzer.NodeText(r, content)
		}
		return types.Parameter{Name: name, Default: def, HasDefault: true}, true
	}
	return types.Parameter{}, false
}

func (w *walker) parseClass(node *tree_sitter.Node, name string, exported bool) types.StructSignature {
	var fields []types.StructField
	if body := node.ChildByFieldName("body"); body != nil {
		for _, c := range analyzer.Children(body) {
			if c.Kind() != "public_field_definition" && c.Kind() != "property_declaration" {
				continue
			}
			fname := ""
			if n := c.ChildByFieldName("property"); n != nil {
				fname = analyzer.NodeText(n, w.content)
			} else if n := c.ChildByFieldName("name"); n != nil {
				fname = analyzer.NodeText(n, w.content)
			}
			ftype := ""
			if t := c.ChildByFieldName("type"); t != nil {
				ftype = strings.TrimSpace(strings.TrimPrefix(analyzer.NodeText(t, w.content), ":"))
			}
			isPublic := true
			for _, m := range analyzer.Children(c) {
				if m.Kind() == "accessibility_modifier" {
					isPublic = analyzer.NodeText(m, w.content) == "public"
				}
			}
			fields = append(fields, types.StructField{Name: fname, Type: ftype, IsPublic: isPublic})
		}
	}
	return types.StructSignature{
		Name:      name,
		Fields:    fields,
		IsPublic:  exported,
		StartLine: analyzer.NodeLine(node),
		EndLine:   analyzer.NodeEndLine(node),
	}
}

func (w *walker) parseExport(node, decl *tree_sitter.Node) types.ExportStatement {
	kind := types.ExportValue
	name := ""
	if decl != nil {
		switch decl.Kind() {
		case "function_declaration", "generator_function_declaration":
			kind = types.ExportFunction
			if n := decl.ChildByFieldName("name"); n != nil {
				name = analyzer.NodeText(n, w.content)
			}
		case "class_declaration":
			kind = types.ExportType
			if n := decl.ChildByFieldName("name"); n != nil {
				name = analyzer.NodeText(n, w.content)
			}
		case "interface_declaration", "type_alias_declaration":
			kind = types.ExportType
			if n := decl.ChildByFieldName("name"); n != nil {
				name = analyzer.NodeText(n, w.content)
			}
		case "lexical_declaration", "variable_declaration":
			for _, d := range analyzer.Children(decl) {
				if d.Kind() == "variable_declarator" {
					if n := d.ChildByFieldName("name"); n != nil {
						name = analyzer.NodeText(n, w.content)
					}
				}
			}
		}
	}
	return types.ExportStatement{Name: name, Kind: kind, Line: analyzer.NodeLine(node)}
}

func (w *walker) parseImport(node *tree_sitter.Node) types.ImportStatement {
	source := ""
	if s := node.ChildByFieldName("source"); s != nil {
		source = strings.Trim(analyzer.NodeText(s, w.content), `"'`)
	}
	var items []string
	for _, c := range analyzer.Children(node) {
		if c.Kind() == "import_clause" {
			for _, ic := range analyzer.Children(c) {
				switch ic.Kind() {
				case "identifier":
					items = append(items, analyzer.NodeText(ic, w.content))
				case "named_imports":
					for _, spec := range analyzer.Children(ic) {
						if spec.Kind() == "import_specifier" {
							items = append(items, analyzer.NodeText(spec, w.content))
						}
					}
				}
			}
		}
	}
	return types.ImportStatement{
		ModulePath: source,
		Items:      items,
		IsRelative: strings.HasPrefix(source, "."),
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
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		obj := fn.ChildByFieldName("object")
		if prop == nil {
			return types.FunctionCall{}, false
		}
		return types.FunctionCall{
			Callee:   analyzer.NodeText(prop, w.content),
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
