// Package tools implements the MCP tool handlers for linkmap.
//
// Each tool follows the same shape:
// - a struct holding its dependencies, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a JSON text result
//
// Domain failures never surface as Go errors. They become tool results
// carrying {"error": {"kind", "message"}} so the caller can branch on kind.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/resolver"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// errorBody is the structured error payload.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult wraps err in the structured error payload.
func errorResult(err error) *mcp.CallToolResult {
	body := errorBody{Error: errorDetail{Kind: resolver.Kind(err), Message: err.Error()}}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// missingArg reports a required argument that was not supplied.
func missingArg(name string) *mcp.CallToolResult {
	return errorResult(fmt.Errorf("%w: '%s' is required", resolver.ErrInvalidArgument, name))
}
