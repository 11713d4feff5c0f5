package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/resolver"
)

// ConvertTool handles the convert_links MCP tool.
type ConvertTool struct {
	resolver *resolver.Resolver
}

// NewConvertTool creates a ConvertTool.
func NewConvertTool(r *resolver.Resolver) *ConvertTool {
	return &ConvertTool{resolver: r}
}

// Definition returns the MCP tool definition for convert_links.
func (t *ConvertTool) Definition() mcp.Tool {
	return mcp.NewTool("convert_links",
		mcp.WithDescription(
			"Rewrite the markdown link targets in a text between physical paths and abstract "+
				"addresses. Only [label](target) targets change; everything else is returned "+
				"byte for byte. Targets that cannot be converted are left untouched.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Markdown text to convert"),
		),
		mcp.WithBoolean("to_abstract",
			mcp.Required(),
			mcp.Description("true: physical paths -> abstract addresses; false: the reverse"),
		),
		mcp.WithString("base_dir",
			mcp.Description("Repository-relative directory of the document the text belongs to (default: repository root)"),
		),
	)
}

// Handle processes the convert_links tool call.
func (t *ConvertTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	text, ok := args["text"].(string)
	if !ok {
		return missingArg("text"), nil
	}
	toAbstract, ok := args["to_abstract"].(bool)
	if !ok {
		return missingArg("to_abstract"), nil
	}

	res, err := t.resolver.ConvertLinks(ctx, text, toAbstract, req.GetString("base_dir", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}
