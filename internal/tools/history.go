package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/journal"
)

// History is the read side of the scan journal.
type History interface {
	RecentScans(limit int) ([]journal.ScanSummary, error)
	RecentRegistrations(limit int) ([]journal.Registration, error)
}

// HistoryTool handles the get_scan_history MCP tool.
type HistoryTool struct {
	history History
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(h History) *HistoryTool {
	return &HistoryTool{history: h}
}

// Definition returns the MCP tool definition for get_scan_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_scan_history",
		mcp.WithDescription(
			"Show recent discovery scans (newest first) with their mapping, conflict and "+
				"warning counts, plus recent manual registrations.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Max entries of each kind (default: 10)"),
		),
	)
}

// Handle processes the get_scan_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 10)

	scans, err := t.history.RecentScans(limit)
	if err != nil {
		return errorResult(err), nil
	}
	regs, err := t.history.RecentRegistrations(limit)
	if err != nil {
		return errorResult(err), nil
	}
	if scans == nil {
		scans = []journal.ScanSummary{}
	}
	if regs == nil {
		regs = []journal.Registration{}
	}
	return jsonResult(map[string]any{
		"scans":         scans,
		"registrations": regs,
	})
}
