package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/resolver"
)

// RefreshTool handles the refresh_mappings MCP tool.
type RefreshTool struct {
	resolver *resolver.Resolver
}

// NewRefreshTool creates a RefreshTool.
func NewRefreshTool(r *resolver.Resolver) *RefreshTool {
	return &RefreshTool{resolver: r}
}

// Definition returns the MCP tool definition for refresh_mappings.
func (t *RefreshTool) Definition() mcp.Tool {
	return mcp.NewTool("refresh_mappings",
		mcp.WithDescription(
			"Rescan the document roots. Without force the scan only runs when files changed "+
				"since the last scan. Returns counts, conflicts and warnings.",
		),
		mcp.WithBoolean("force",
			mcp.Description("Rescan even if the cache is up to date (default: false)"),
		),
	)
}

// Handle processes the refresh_mappings tool call.
func (t *RefreshTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.resolver.Refresh(ctx, boolArg(req, "force", false))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(report)
}
