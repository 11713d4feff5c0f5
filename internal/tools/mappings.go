package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/mapping"
	"github.com/HendryAvila/linkmap/internal/resolver"
)

// MappingsTool handles the get_mappings MCP tool.
type MappingsTool struct {
	resolver *resolver.Resolver
}

// NewMappingsTool creates a MappingsTool.
func NewMappingsTool(r *resolver.Resolver) *MappingsTool {
	return &MappingsTool{resolver: r}
}

// Definition returns the MCP tool definition for get_mappings.
func (t *MappingsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_mappings",
		mcp.WithDescription("List known mappings ordered by logical id, optionally for one document type."),
		mcp.WithString("document_type",
			mcp.Description("Filter: standard, task, incident or directory"),
		),
	)
}

// Handle processes the get_mappings tool call.
func (t *MappingsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f resolver.Filter
	if raw := req.GetString("document_type", ""); raw != "" {
		typ, err := address.ParseType(raw)
		if err != nil {
			return errorResult(err), nil
		}
		f.Type = typ
	}

	ms, err := t.resolver.Mappings(ctx, f)
	if err != nil {
		return errorResult(err), nil
	}
	if ms == nil {
		ms = []mapping.Mapping{}
	}
	return jsonResult(map[string]any{
		"count":    len(ms),
		"mappings": ms,
	})
}
