package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/resolver"
)

// StatsTool handles the get_statistics MCP tool.
type StatsTool struct {
	resolver *resolver.Resolver
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(r *resolver.Resolver) *StatsTool {
	return &StatsTool{resolver: r}
}

// Definition returns the MCP tool definition for get_statistics.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_statistics",
		mcp.WithDescription("Show mapping totals per document type, manual entries, conflicts and the last scan time."),
	)
}

// Handle processes the get_statistics tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.resolver.Statistics(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(st)
}
