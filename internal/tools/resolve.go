package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/resolver"
)

// ResolveAbstractTool handles the resolve_abstract_path MCP tool.
type ResolveAbstractTool struct {
	resolver *resolver.Resolver
}

// NewResolveAbstractTool creates a ResolveAbstractTool.
func NewResolveAbstractTool(r *resolver.Resolver) *ResolveAbstractTool {
	return &ResolveAbstractTool{resolver: r}
}

// Definition returns the MCP tool definition for resolve_abstract_path.
func (t *ResolveAbstractTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_abstract_path",
		mcp.WithDescription(
			"Resolve an abstract document address to its current physical path. "+
				"Accepts abstract://<type>:<id> or the short <type>:<id> form; "+
				"types are standard, task, incident and directory.",
		),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Abstract address, e.g. abstract://standard:task_master"),
		),
	)
}

// Handle processes the resolve_abstract_path tool call.
func (t *ResolveAbstractTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	addr := req.GetString("address", "")
	if addr == "" {
		return missingArg("address"), nil
	}

	p, err := t.resolver.Resolve(ctx, addr)
	if err != nil {
		return errorResult(err), nil
	}
	// Resolve succeeded, so the address parses.
	a, _ := address.Parse(addr)
	return jsonResult(map[string]string{
		"address":       a.String(),
		"physical_path": p,
	})
}

// ResolvePhysicalTool handles the resolve_physical_path MCP tool.
type ResolvePhysicalTool struct {
	resolver *resolver.Resolver
}

// NewResolvePhysicalTool creates a ResolvePhysicalTool.
func NewResolvePhysicalTool(r *resolver.Resolver) *ResolvePhysicalTool {
	return &ResolvePhysicalTool{resolver: r}
}

// Definition returns the MCP tool definition for resolve_physical_path.
func (t *ResolvePhysicalTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_physical_path",
		mcp.WithDescription(
			"Find the abstract address of a document from its repository-relative path. "+
				"Use it before writing a link so the reference survives reorganization.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path relative to the repository root, e.g. tasks/todo.md"),
		),
	)
}

// Handle processes the resolve_physical_path tool call.
func (t *ResolvePhysicalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := req.GetString("path", "")
	if p == "" {
		return missingArg("path"), nil
	}

	addr, err := t.resolver.ResolvePhysical(ctx, p)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]string{
		"physical_path": p,
		"address":       addr,
	})
}
