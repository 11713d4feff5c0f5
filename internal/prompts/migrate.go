package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MigratePrompt handles the link-migrate MCP prompt.
// It guides the AI through rewriting one document's links to abstract
// addresses.
type MigratePrompt struct{}

// NewMigratePrompt creates a MigratePrompt.
func NewMigratePrompt() *MigratePrompt {
	return &MigratePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *MigratePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("link-migrate",
		mcp.WithPromptDescription(
			"Rewrite the relative links of a markdown document as abstract addresses "+
				"so they keep working when files move.",
		),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Repository-relative path of the document to migrate"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the link-migrate prompt request.
func (p *MigratePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	docPath := ""
	if args := req.Params.Arguments; args != nil {
		docPath = args["path"]
	}
	if docPath == "" {
		return nil, fmt.Errorf("argument 'path' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Migrate links in %s", docPath),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want the links in '%s' to use abstract addresses.\n\n"+
						"Please:\n"+
						"1. Read the file\n"+
						"2. Run `convert_links` with the full text, to_abstract=true and base_dir set to the file's directory\n"+
						"3. Show me how many links were converted and which relative links were left as they were\n"+
						"4. For each link left unconverted that points at a document, run `resolve_physical_path` "+
						"and suggest a `register_mapping` call if it has no address\n"+
						"5. Write the converted text back only after I confirm",
					docPath,
				)),
			},
		},
	}, nil
}
