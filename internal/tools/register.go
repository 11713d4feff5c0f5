package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/address"
	"github.com/HendryAvila/linkmap/internal/resolver"
)

// RegisterTool handles the register_mapping MCP tool.
type RegisterTool struct {
	resolver *resolver.Resolver
}

// NewRegisterTool creates a RegisterTool.
func NewRegisterTool(r *resolver.Resolver) *RegisterTool {
	return &RegisterTool{resolver: r}
}

// Definition returns the MCP tool definition for register_mapping.
func (t *RegisterTool) Definition() mcp.Tool {
	return mcp.NewTool("register_mapping",
		mcp.WithDescription(
			"Register a manual mapping from a logical id to a physical path. "+
				"Manual mappings win over discovered ones and survive rescans until "+
				"clear_manual_mappings is called. The path is not checked for existence.",
		),
		mcp.WithString("document_type",
			mcp.Required(),
			mcp.Description("standard, task, incident or directory"),
		),
		mcp.WithString("logical_id",
			mcp.Required(),
			mcp.Description("Logical id, e.g. task_master"),
		),
		mcp.WithString("physical_path",
			mcp.Required(),
			mcp.Description("Path relative to the repository root"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing mapping for the same id (default: true)"),
		),
	)
}

// Handle processes the register_mapping tool call.
func (t *RegisterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawType := req.GetString("document_type", "")
	id := req.GetString("logical_id", "")
	p := req.GetString("physical_path", "")
	switch {
	case rawType == "":
		return missingArg("document_type"), nil
	case id == "":
		return missingArg("logical_id"), nil
	case p == "":
		return missingArg("physical_path"), nil
	}

	typ, err := address.ParseType(rawType)
	if err != nil {
		return errorResult(err), nil
	}

	m, err := t.resolver.Register(ctx, typ, id, p, resolver.RegisterOptions{
		NoOverwrite: !boolArg(req, "overwrite", true),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"address": m.Address(),
		"mapping": m,
	})
}
