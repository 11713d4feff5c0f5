package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/mapping"
	"github.com/HendryAvila/linkmap/internal/resolver"
)

// ConflictsTool handles the get_conflicts MCP tool.
type ConflictsTool struct {
	resolver *resolver.Resolver
}

// NewConflictsTool creates a ConflictsTool.
func NewConflictsTool(r *resolver.Resolver) *ConflictsTool {
	return &ConflictsTool{resolver: r}
}

// Definition returns the MCP tool definition for get_conflicts.
func (t *ConflictsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_conflicts",
		mcp.WithDescription(
			"List the id collisions and other warnings from the latest scan. A conflict names "+
				"the path that kept the id and the path it shadowed; rename one file or register "+
				"a manual mapping to resolve it.",
		),
	)
}

// Handle processes the get_conflicts tool call.
func (t *ConflictsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conflicts, err := t.resolver.Conflicts(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	warnings, err := t.resolver.Warnings(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if conflicts == nil {
		conflicts = []mapping.Conflict{}
	}
	if warnings == nil {
		warnings = []mapping.Warning{}
	}
	return jsonResult(map[string]any{
		"conflicts": conflicts,
		"warnings":  warnings,
	})
}

// ClearManualTool handles the clear_manual_mappings MCP tool.
type ClearManualTool struct {
	resolver *resolver.Resolver
}

// NewClearManualTool creates a ClearManualTool.
func NewClearManualTool(r *resolver.Resolver) *ClearManualTool {
	return &ClearManualTool{resolver: r}
}

// Definition returns the MCP tool definition for clear_manual_mappings.
func (t *ClearManualTool) Definition() mcp.Tool {
	return mcp.NewTool("clear_manual_mappings",
		mcp.WithDescription("Drop every manual mapping and rescan, restoring the discovered mappings they shadowed."),
	)
}

// Handle processes the clear_manual_mappings tool call.
func (t *ClearManualTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	removed, err := t.resolver.ClearManual(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]int{"removed": removed})
}
