// Package prompts implements MCP prompt handlers for linkmap.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a sequence of linkmap tools. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// AuditPrompt handles the link-audit MCP prompt.
// It asks the AI to review the mapping table and its scan diagnostics.
type AuditPrompt struct{}

// NewAuditPrompt creates an AuditPrompt.
func NewAuditPrompt() *AuditPrompt {
	return &AuditPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AuditPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("link-audit",
		mcp.WithPromptDescription(
			"Audit the document mapping table: id collisions, unreadable folders, "+
				"manual overrides and anything that will break abstract links.",
		),
	)
}

// Handle processes the link-audit prompt request.
func (p *AuditPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Document link audit",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please audit the document mappings of this repository.\n\n" +
						"1. Run `refresh_mappings` so the table reflects the current tree\n" +
						"2. Run `get_statistics` and summarize the totals per document type\n" +
						"3. Run `get_conflicts` and, for every conflict, say which file kept the id, " +
						"which one was shadowed, and suggest a rename or a `register_mapping` call\n" +
						"4. List unreadable folders and missing roots from the warnings\n" +
						"5. Run `get_mappings` and point out manual mappings whose paths look outdated\n\n" +
						"Do not change anything yet. End with a short list of recommended actions.",
				),
			},
		},
	}, nil
}
