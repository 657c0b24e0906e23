package tools

import "github.com/google/jsonschema-go/jsonschema"

// GetToolDefinitions returns the closed set of six tool descriptors: the
// only contract an LLM agent ever sees. The optional MCP stdio transport
// (internal/mcpserver, started by cmd/repomap's mcp command) wraps each
// entry into an mcp.Tool backed by the facade's ExecuteTool.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "search_functions",
			Description: "Search indexed function and method signatures by name pattern.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pattern": {
						Type:        "string",
						Description: "Substring, /regex/, or glob (*, ?) pattern to match against function names",
					},
					"limit": {
						Type:        "integer",
						Description: "Maximum number of results to return",
					},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "search_structs",
			Description: "Search indexed struct/class/record signatures by name pattern.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pattern": {
						Type:        "string",
						Description: "Substring, /regex/, or glob (*, ?) pattern to match against struct names",
					},
					"limit": {
						Type:        "integer",
						Description: "Maximum number of results to return",
					},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "analyze_file",
			Description: "Re-analyze a single file on disk and return its extracted functions, structs, imports, exports, calls, and parse errors.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {
						Type:        "string",
						Description: "Path to the file to analyze",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "get_dependencies",
			Description: "Return the import module paths and exported names of an indexed file.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {
						Type:        "string",
						Description: "Path to an indexed file",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "find_callers",
			Description: "Return every recorded call site for a given function name, sorted by file path then line.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"function_name": {
						Type:        "string",
						Description: "Exact callee name to look up in the call graph",
					},
					"limit": {
						Type:        "integer",
						Description: "Maximum number of call sites to return",
					},
				},
				Required: []string{"function_name"},
			},
		},
		{
			Name:        "get_repository_tree",
			Description: "Return a summary of the indexed repository: per-language file counts, total entity counts, and the directory tree.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"include_counts": {
						Type:        "boolean",
						Description: "Include per-language and total entity counts in the response",
					},
				},
			},
		},
	}
}
