// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the resolver, the optional
// journal and the tool/prompt/resource handlers that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/linkmap/internal/config"
	"github.com/HendryAvila/linkmap/internal/journal"
	"github.com/HendryAvila/linkmap/internal/prompts"
	"github.com/HendryAvila/linkmap/internal/resolver"
	"github.com/HendryAvila/linkmap/internal/resources"
	"github.com/HendryAvila/linkmap/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the long-lived collaborators built from a Config. The CLI
// subcommands use them directly; New wraps them in an MCP server.
type Deps struct {
	Resolver *resolver.Resolver
	// Journal is nil when disabled or when it failed to open.
	Journal *journal.Store
}

// Build creates the resolver and journal described by cfg.
//
// The journal is an independent subsystem: if it fails to open, the
// resolver keeps working without history and a warning is logged.
// The returned cleanup function is always non-nil and safe to call.
func Build(cfg config.Config, logger *slog.Logger) (*Deps, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	deriver, err := cfg.Deriver()
	if err != nil {
		return nil, noop, fmt.Errorf("creating deriver: %w", err)
	}

	deps := &Deps{}
	cleanup := noop
	var recorder resolver.Recorder

	if cfg.JournalDir != "" {
		jcfg := journal.DefaultConfig(cfg.JournalDir)
		if cfg.JournalMaxRuns > 0 {
			jcfg.MaxRuns = cfg.JournalMaxRuns
		}
		store, err := journal.New(jcfg)
		if err != nil {
			logger.Warn("journal subsystem disabled", "error", err)
		} else {
			deps.Journal = store
			recorder = store
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("journal close", "error", err)
				}
			}
		}
	}

	deps.Resolver = resolver.New(resolver.Options{
		RepoRoot:  cfg.RepoRoot,
		Roots:     cfg.RootSpecs(),
		CachePath: cfg.CacheFile,
		Deriver:   deriver,
		Recorder:  recorder,
		Logger:    logger,
	})
	return deps, cleanup, nil
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the journal database and must be
// called on shutdown (typically via defer).
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	deps, cleanup, err := Build(cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	r := deps.Resolver

	s := server.NewMCPServer(
		"linkmap",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Resolution tools ---

	resolveAbstract := tools.NewResolveAbstractTool(r)
	s.AddTool(resolveAbstract.Definition(), resolveAbstract.Handle)

	resolvePhysical := tools.NewResolvePhysicalTool(r)
	s.AddTool(resolvePhysical.Definition(), resolvePhysical.Handle)

	mappingsTool := tools.NewMappingsTool(r)
	s.AddTool(mappingsTool.Definition(), mappingsTool.Handle)

	searchTool := tools.NewSearchTool(r)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	convertTool := tools.NewConvertTool(r)
	s.AddTool(convertTool.Definition(), convertTool.Handle)

	// --- Maintenance tools ---

	registerTool := tools.NewRegisterTool(r)
	s.AddTool(registerTool.Definition(), registerTool.Handle)

	clearManualTool := tools.NewClearManualTool(r)
	s.AddTool(clearManualTool.Definition(), clearManualTool.Handle)

	refreshTool := tools.NewRefreshTool(r)
	s.AddTool(refreshTool.Definition(), refreshTool.Handle)

	statsTool := tools.NewStatsTool(r)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	conflictsTool := tools.NewConflictsTool(r)
	s.AddTool(conflictsTool.Definition(), conflictsTool.Handle)

	// --- History (only with a working journal) ---

	if deps.Journal != nil {
		historyTool := tools.NewHistoryTool(deps.Journal)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}

	// --- Prompts ---

	auditPrompt := prompts.NewAuditPrompt()
	s.AddPrompt(auditPrompt.Definition(), auditPrompt.Handle)

	migratePrompt := prompts.NewMigratePrompt()
	s.AddPrompt(migratePrompt.Definition(), migratePrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(r)
	s.AddResource(resourceHandler.MappingsResource(), resourceHandler.HandleMappings)
	s.AddResource(resourceHandler.DiagnosticsResource(), resourceHandler.HandleDiagnostics)

	return s, cleanup, nil
}

// noop is the default cleanup when no journal was opened.
func noop() {}

// serverInstructions tells the AI how to use linkmap.
func serverInstructions() string {
	return `You have access to linkmap, a registry of stable document addresses.

## Addresses
Documents are named by abstract addresses instead of file paths:
  abstract://<type>:<logical_id>   or the short form   <type>:<logical_id>
Types: standard, task, incident, directory.
Example: abstract://standard:task_master

Files in this repository get moved and renamed. An abstract address keeps
pointing at the right file; a relative path does not.

## When to use which tool
- Need to open a document you only know by address: resolve_abstract_path
- About to write a link to a file: resolve_physical_path, then link the address
- Looking for a document by topic: search_mappings
- Editing markdown: convert_links with to_abstract=true before saving,
  to_abstract=false when a human-readable path is needed
- A link resolves to the wrong file: get_conflicts, then register_mapping
- Files were just moved: refresh_mappings (lookups also rescan on their own
  when the tree changed)

## Errors
Failed calls return {"error": {"kind": ..., "message": ...}} where kind is
parse_error, not_found, conflict, invalid_argument or internal. A not_found
address usually means the document was renamed: search for it by topic.`
}
