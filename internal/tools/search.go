package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/resolver"
)

// SearchTool handles the search_mappings MCP tool.
type SearchTool struct {
	resolver *resolver.Resolver
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(r *resolver.Resolver) *SearchTool {
	return &SearchTool{resolver: r}
}

// Definition returns the MCP tool definition for search_mappings.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_mappings",
		mcp.WithDescription(
			"Search mappings by logical id or display name (case-insensitive substring). "+
				"Exact id matches rank first, then id prefixes, id substrings and display names.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for, e.g. registry"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the search_mappings tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return missingArg("query"), nil
	}

	results, err := t.resolver.Search(ctx, query, intArg(req, "limit", resolver.DefaultSearchLimit))
	if err != nil {
		return errorResult(err), nil
	}
	if results == nil {
		results = []resolver.SearchResult{}
	}
	return jsonResult(map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}
