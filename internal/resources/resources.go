// Package resources implements MCP resource handlers for linkmap.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (linkmap://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/linkmap/internal/mapping"
	"github.com/HendryAvila/linkmap/internal/resolver"
)

const (
	MappingsURI    = "linkmap://mappings"
	DiagnosticsURI = "linkmap://diagnostics"
)

// Handler manages linkmap resource endpoints.
type Handler struct {
	resolver *resolver.Resolver
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(r *resolver.Resolver) *Handler {
	return &Handler{resolver: r}
}

// MappingsResource returns the MCP resource definition for the mapping table.
func (h *Handler) MappingsResource() mcp.Resource {
	return mcp.NewResource(
		MappingsURI,
		"Document mappings",
		mcp.WithResourceDescription("Every logical id with its document type and physical path"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleMappings returns the mapping table as JSON.
func (h *Handler) HandleMappings(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ms, err := h.resolver.Mappings(ctx, resolver.Filter{})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if ms == nil {
		ms = []mapping.Mapping{}
	}
	return jsonResource(req.Params.URI, map[string]any{
		"count":    len(ms),
		"mappings": ms,
	})
}

// DiagnosticsResource returns the MCP resource definition for scan diagnostics.
func (h *Handler) DiagnosticsResource() mcp.Resource {
	return mcp.NewResource(
		DiagnosticsURI,
		"Scan diagnostics",
		mcp.WithResourceDescription("Id conflicts and warnings recorded by the latest discovery scan"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleDiagnostics returns conflicts and warnings as JSON.
func (h *Handler) HandleDiagnostics(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	conflicts, err := h.resolver.Conflicts(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	warnings, err := h.resolver.Warnings(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if conflicts == nil {
		conflicts = []mapping.Conflict{}
	}
	if warnings == nil {
		warnings = []mapping.Warning{}
	}
	return jsonResource(req.Params.URI, map[string]any{
		"conflicts": conflicts,
		"warnings":  warnings,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
