package tools

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/analyzer/langgo"
	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/repomap"
	"github.com/reposcope/repomap/internal/types"
)

func testDispatcher(t *testing.T) (*Dispatcher, *repomap.RepoMap) {
	t.Helper()
	reg := analyzer.NewRegistry()
	require.NoError(t, reg.Register(langgo.New()))

	idx := repomap.New(config.Cache{TTL: 300 * time.Second, MaxEntries: 1000}, 0)
	idx.Ingest(types.FileAnalysis{
		Path:     "main.go",
		Language: "go",
		Functions: []types.FunctionSignature{
			{Name: "Run", StartLine: 1, EndLine: 5, IsPublic: true},
		},
		Structs: []types.StructSignature{
			{Name: "Config", StartLine: 7, EndLine: 9, IsPublic: true,
				Fields: []types.StructField{{Name: "Name", Type: "string", IsPublic: true}}},
		},
		Imports: []types.ImportStatement{{ModulePath: "fmt", Line: 1}},
		Exports: []types.ExportStatement{{Name: "Run", Kind: types.ExportFunction, Line: 1}},
	})

	return New(idx, reg), idx
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSearchFunctionsSuccess(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "search_functions", rawJSON(t, map[string]any{"pattern": "Run"}))
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	rows, ok := result.Data.([]functionRow)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "Run", rows[0].Name)
}

func TestSearchFunctionsMissingPattern(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "search_functions", rawJSON(t, map[string]any{}))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestSearchStructsSuccess(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "search_structs", rawJSON(t, map[string]any{"pattern": "Config"}))
	require.True(t, result.Success)
	rows, ok := result.Data.([]structRow)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "Config", rows[0].Name)
	require.Len(t, rows[0].Fields, 1)
}

func TestGetDependenciesNotFound(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "get_dependencies", rawJSON(t, map[string]any{"path": "missing.go"}))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestGetDependenciesMissingPath(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "get_dependencies", rawJSON(t, map[string]any{}))
	assert.False(t, result.Success)
}

func TestAnalyzeFileReReadsFromDisk(t *testing.T) {
	d, idx := testDispatcher(t)

	dir := t.TempDir()
	path := dir + "/live.go"
	require.NoError(t, os.WriteFile(path, []byte("package live\n\nfunc First() {}\n"), 0o644))

	result := d.ExecuteTool(context.Background(), "analyze_file", rawJSON(t, map[string]any{"path": path}))
	require.True(t, result.Success)
	row, ok := result.Data.(fileAnalysisRow)
	require.True(t, ok)
	require.Len(t, row.Functions, 1)
	assert.Equal(t, "First", row.Functions[0].Name)

	// Rewrite the file on disk; analyze_file must reflect the new content
	// rather than any indexed copy (it never touched the index at all here).
	require.NoError(t, os.WriteFile(path, []byte("package live\n\nfunc First() {}\nfunc Second() {}\n"), 0o644))
	result = d.ExecuteTool(context.Background(), "analyze_file", rawJSON(t, map[string]any{"path": path}))
	require.True(t, result.Success)
	row, ok = result.Data.(fileAnalysisRow)
	require.True(t, ok)
	assert.Len(t, row.Functions, 2)

	assert.Equal(t, 1, idx.Metadata().TotalFiles, "analyze_file must not mutate the index")
}

func TestAnalyzeFileNotFound(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "analyze_file", rawJSON(t, map[string]any{"path": "/nonexistent/path.go"}))
	assert.False(t, result.Success)
}

func TestFindCallers(t *testing.T) {
	d, idx := testDispatcher(t)
	idx.Ingest(types.FileAnalysis{
		Path:     "caller.go",
		Language: "go",
		Functions: []types.FunctionSignature{
			{Name: "main", StartLine: 1, EndLine: 4},
		},
		Calls: []types.FunctionCall{{Callee: "Run", Line: 2}},
	})

	result := d.ExecuteTool(context.Background(), "find_callers", rawJSON(t, map[string]any{"function_name": "Run"}))
	require.True(t, result.Success)
	rows, ok := result.Data.([]callSiteRow)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "caller.go", rows[0].CallerFile)
}

func TestFindCallersMissingName(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "find_callers", rawJSON(t, map[string]any{}))
	assert.False(t, result.Success)
}

func TestGetRepositoryTree(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "get_repository_tree", rawJSON(t, map[string]any{"include_counts": true}))
	require.True(t, result.Success)
	row, ok := result.Data.(treeSummaryRow)
	require.True(t, ok)
	assert.Equal(t, 1, row.TotalFiles)
	assert.Equal(t, 1, row.TotalFunctions)
}

func TestGetRepositoryTreeNoParams(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "get_repository_tree", nil)
	assert.True(t, result.Success)
}

func TestUnknownTool(t *testing.T) {
	d, _ := testDispatcher(t)
	result := d.ExecuteTool(context.Background(), "delete_everything", rawJSON(t, map[string]any{}))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
}
