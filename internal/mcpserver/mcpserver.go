// Package mcpserver adapts the facade's six tools onto an MCP stdio
// transport, using the SDK's mcp.Server/AddTool wiring directly. It is a
// thin adapter with no algorithmic content of its own.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reposcope/repomap/internal/facade"
)

// Serve registers the closed tool set on a new MCP server and runs it over
// stdio until the transport closes.
func Serve(ctx context.Context, h *facade.Handle) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "repomap",
		Version: "0.1.0",
	}, nil)

	for _, def := range h.GetToolDefinitions() {
		name := def.Name
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handle(ctx, h, name, req)
		})
	}

	return server.Run(ctx, &mcp.StdioTransport{})
}

func handle(ctx context.Context, h *facade.Handle, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := h.ExecuteTool(ctx, name, req.Params.Arguments)
	body, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil
}
