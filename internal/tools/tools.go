// Package tools implements the six-tool dispatcher: the only surface an LLM
// agent sees. Every tool call is schema-validated before it touches the
// index, and every outcome — success or failure — comes back as a
// ToolResult, never a panic or a bare error.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/repomap"
	"github.com/reposcope/repomap/internal/rmerrors"
	"github.com/reposcope/repomap/internal/types"
)

// ToolResult is the uniform envelope every tool call returns.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) ToolResult   { return ToolResult{Success: true, Data: data} }
func fail(err error) ToolResult { return ToolResult{Success: false, Error: err.Error()} }

// ToolDefinition is one entry of get_tool_definitions(): name, human
// description, and a JSON-schema-compatible descriptor of its input
// parameters.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Dispatcher routes (tool_name, params) to the index, and — for
// analyze_file — re-invokes an analyzer directly against the file on disk
// rather than serving the indexed copy.
type Dispatcher struct {
	index    *repomap.RepoMap
	registry *analyzer.Registry
}

// New builds a dispatcher bound to an index and analyzer registry.
func New(index *repomap.RepoMap, registry *analyzer.Registry) *Dispatcher {
	return &Dispatcher{index: index, registry: registry}
}

// ExecuteTool validates params against the named tool's schema and, on
// success, routes to the matching index/analyzer operation. It never
// propagates a panic or an unhandled error to the caller.
func (d *Dispatcher) ExecuteTool(ctx context.Context, name string, params json.RawMessage) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fail(fmt.Errorf("tool %s: internal error: %v", name, r))
		}
	}()

	switch name {
	case "search_functions":
		return d.searchFunctions(params)
	case "search_structs":
		return d.searchStructs(params)
	case "analyze_file":
		return d.analyzeFile(params)
	case "get_dependencies":
		return d.getDependencies(params)
	case "find_callers":
		return d.findCallers(params)
	case "get_repository_tree":
		return d.getRepositoryTree(params)
	default:
		return fail(rmerrors.NewToolSchemaError(name, "", "unknown tool"))
	}
}

type searchFunctionsParams struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit,omitempty"`
}

func (d *Dispatcher) searchFunctions(raw json.RawMessage) ToolResult {
	var p searchFunctionsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fail(rmerrors.NewToolSchemaError("search_functions", "", "invalid JSON: "+err.Error()))
	}
	if p.Pattern == "" {
		return fail(rmerrors.NewToolSchemaError("search_functions", "pattern", "required"))
	}

	matches := d.index.FindFunctions(p.Pattern, p.Limit)
	out := make([]functionRow, 0, len(matches))
	for _, m := range matches {
		out = append(out, functionRow{
			Name: m.Name, File: m.File,
			StartLine: m.StartLine, EndLine: m.EndLine,
			IsPublic: m.IsPublic, IsAsync: m.IsAsync,
		})
	}
	return ok(out)
}

type functionRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	IsPublic  bool   `json:"is_public"`
	IsAsync   bool   `json:"is_async"`
}

type searchStructsParams struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit,omitempty"`
}

func (d *Dispatcher) searchStructs(raw json.RawMessage) ToolResult {
	var p searchStructsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fail(rmerrors.NewToolSchemaError("search_structs", "", "invalid JSON: "+err.Error()))
	}
	if p.Pattern == "" {
		return fail(rmerrors.NewToolSchemaError("search_structs", "pattern", "required"))
	}

	matches := d.index.FindStructs(p.Pattern, p.Limit)
	out := make([]structRow, 0, len(matches))
	for _, m := range matches {
		fields := make([]fieldRow, 0, len(m.Fields))
		for _, f := range m.Fields {
			fields = append(fields, fieldRow{Name: f.Name, Type: f.Type, IsPublic: f.IsPublic})
		}
		out = append(out, structRow{Name: m.Name, File: m.File, Fields: fields, IsPublic: m.IsPublic})
	}
	return ok(out)
}

type structRow struct {
	Name     string     `json:"name"`
	File     string     `json:"file"`
	Fields   []fieldRow `json:"fields"`
	IsPublic bool       `json:"is_public"`
}

type fieldRow struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"is_public"`
}

type analyzeFileParams struct {
	Path string `json:"path"`
}

// analyzeFile re-reads and re-parses path on demand rather than serving
// whatever the index last ingested, so callers always see the file's
// current on-disk state.
func (d *Dispatcher) analyzeFile(raw json.RawMessage) ToolResult {
	var p analyzeFileParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fail(rmerrors.NewToolSchemaError("analyze_file", "", "invalid JSON: "+err.Error()))
	}
	if p.Path == "" {
		return fail(rmerrors.NewToolSchemaError("analyze_file", "path", "required"))
	}

	text, err := os.ReadFile(p.Path)
	if err != nil {
		return fail(rmerrors.NewNotFoundError("file", p.Path))
	}

	lang, ok2 := d.registry.Detect(p.Path)
	if !ok2 {
		return fail(rmerrors.NewNotFoundError("analyzer", p.Path))
	}
	a, ok2 := d.registry.ByLanguage(lang)
	if !ok2 {
		return fail(rmerrors.NewNotFoundError("analyzer", lang))
	}

	analysis := a.Analyze(p.Path, text)
	return ok(projectFileAnalysis(analysis))
}

type fileAnalysisRow struct {
	Path        string                    `json:"path"`
	Language    string                    `json:"language"`
	Functions   []functionRow             `json:"functions"`
	Structs     []structRow               `json:"structs"`
	Imports     []importRow               `json:"imports"`
	Exports     []exportRow               `json:"exports"`
	Calls       []callRow                 `json:"calls"`
	ParseErrors []parseErrorRow           `json:"parse_errors"`
}

type importRow struct {
	ModulePath string   `json:"module_path"`
	Items      []string `json:"items,omitempty"`
	Alias      string   `json:"alias,omitempty"`
	IsRelative bool     `json:"is_relative"`
	Line       int      `json:"line"`
}

type exportRow struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

type callRow struct {
	Callee   string `json:"callee"`
	Receiver string `json:"receiver,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type parseErrorRow struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func projectFileAnalysis(a types.FileAnalysis) fileAnalysisRow {
	row := fileAnalysisRow{Path: a.Path, Language: a.Language}
	for _, fn := range a.Functions {
		row.Functions = append(row.Functions, functionRow{
			Name: fn.Name, File: a.Path, StartLine: fn.StartLine, EndLine: fn.EndLine,
			IsPublic: fn.IsPublic, IsAsync: fn.IsAsync,
		})
	}
	for _, st := range a.Structs {
		fields := make([]fieldRow, 0, len(st.Fields))
		for _, f := range st.Fields {
			fields = append(fields, fieldRow{Name: f.Name, Type: f.Type, IsPublic: f.IsPublic})
		}
		row.Structs = append(row.Structs, structRow{Name: st.Name, File: a.Path, Fields: fields, IsPublic: st.IsPublic})
	}
	for _, imp := range a.Imports {
		row.Imports = append(row.Imports, importRow{
			ModulePath: imp.ModulePath, Items: imp.Items, Alias: imp.Alias,
			IsRelative: imp.IsRelative, Line: imp.Line,
		})
	}
	for _, exp := range a.Exports {
		row.Exports = append(row.Exports, exportRow{Name: exp.Name, Kind: string(exp.Kind), Line: exp.Line})
	}
	for _, call := range a.Calls {
		row.Calls = append(row.Calls, callRow{
			Callee: call.Callee, Receiver: call.Receiver, Line: call.Line, Column: call.Column,
		})
	}
	for _, pe := range a.ParseErrors {
		row.ParseErrors = append(row.ParseErrors, parseErrorRow{
			Line: pe.Line, Column: pe.Column, Message: pe.Message, Severity: string(pe.Severity),
		})
	}
	return row
}

type getDependenciesParams struct {
	Path string `json:"path"`
}

func (d *Dispatcher) getDependencies(raw json.RawMessage) ToolResult {
	var p getDependenciesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fail(rmerrors.NewToolSchemaError("get_dependencies", "", "invalid JSON: "+err.Error()))
	}
	if p.Path == "" {
		return fail(rmerrors.NewToolSchemaError("get_dependencies", "path", "required"))
	}

	analysis, err := d.index.FileAnalysisByPath(p.Path)
	if err != nil {
		return fail(err)
	}

	imports := make([]string, 0, len(analysis.Imports))
	for _, imp := range analysis.Imports {
		imports = append(imports, imp.ModulePath)
	}
	exports := make([]exportRow, 0, len(analysis.Exports))
	for _, exp := range analysis.Exports {
		exports = append(exports, exportRow{Name: exp.Name, Kind: string(exp.Kind), Line: exp.Line})
	}

	return ok(struct {
		Imports []string    `json:"imports"`
		Exports []exportRow `json:"exports"`
	}{Imports: imports, Exports: exports})
}

type findCallersParams struct {
	FunctionName string `json:"function_name"`
	Limit        int    `json:"limit,omitempty"`
}

func (d *Dispatcher) findCallers(raw json.RawMessage) ToolResult {
	var p findCallersParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fail(rmerrors.NewToolSchemaError("find_callers", "", "invalid JSON: "+err.Error()))
	}
	if p.FunctionName == "" {
		return fail(rmerrors.NewToolSchemaError("find_callers", "function_name", "required"))
	}

	sites := d.index.CallersOf(p.FunctionName, p.Limit)
	out := make([]callSiteRow, 0, len(sites))
	for _, s := range sites {
		out = append(out, callSiteRow{
			Callee: s.Callee, CallerFile: s.CallerFile, CallerFunc: s.CallerFunc,
			Line: s.Line, Column: s.Column,
		})
	}
	return ok(out)
}

type callSiteRow struct {
	Callee     string `json:"callee"`
	CallerFile string `json:"caller_file"`
	CallerFunc string `json:"caller_func,omitempty"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
}

type getRepositoryTreeParams struct {
	IncludeCounts bool `json:"include_counts,omitempty"`
}

func (d *Dispatcher) getRepositoryTree(raw json.RawMessage) ToolResult {
	var p getRepositoryTreeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return fail(rmerrors.NewToolSchemaError("get_repository_tree", "", "invalid JSON: "+err.Error()))
		}
	}

	tree := d.index.RepositoryTree()
	return ok(projectTree(tree, p.IncludeCounts))
}

type treeSummaryRow struct {
	TotalFiles     int              `json:"total_files"`
	TotalFunctions int              `json:"total_functions,omitempty"`
	TotalStructs   int              `json:"total_structs,omitempty"`
	Languages      []languageRow    `json:"languages,omitempty"`
	Tree           *treeNodeRow     `json:"tree"`
}

type languageRow struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
}

type treeNodeRow struct {
	Name     string         `json:"name"`
	IsDir    bool           `json:"is_dir"`
	Children []*treeNodeRow `json:"children,omitempty"`
}

func projectTree(t repomap.TreeSummary, includeCounts bool) treeSummaryRow {
	row := treeSummaryRow{TotalFiles: t.TotalFiles, Tree: projectNode(t.Root)}
	if includeCounts {
		row.TotalFunctions = t.TotalFunctions
		row.TotalStructs = t.TotalStructs
		for _, l := range t.Languages {
			row.Languages = append(row.Languages, languageRow{Language: l.Language, Files: l.Files})
		}
	}
	return row
}

func projectNode(n *repomap.TreeNode) *treeNodeRow {
	if n == nil {
		return nil
	}
	row := &treeNodeRow{Name: n.Name, IsDir: n.IsDir}
	for _, c := range n.Children {
		row.Children = append(row.Children, projectNode(c))
	}
	return row
}
