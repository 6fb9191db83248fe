// Package server wires all components and creates the MCP server
// instance.
//
// This is the composition root: it opens the one database handle,
// builds the stores, caches, and dispatcher, and injects them into the
// tools and resources. No business logic lives here — only wiring. The
// database handle is threaded explicitly; nothing reaches for a global.
package server

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"
	"github.com/mark3labs/mcp-go/server"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/cache"
	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/handlers"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/ledger"
	"github.com/atelierhq/atelier/internal/resources"
	"github.com/atelierhq/atelier/internal/tools"
	"github.com/atelierhq/atelier/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and
// resources registered. This is the single place where all dependencies
// are resolved.
//
// The returned cleanup function closes the database handle and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger slog.Logger) (*server.MCPServer, func(), error) {
	handle, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, noop, fmt.Errorf("opening database: %w", err)
	}
	cleanup := func() {
		if err := handle.Close(); err != nil {
			logger.Warn(context.Background(), "closing database", slog.Error(err))
		}
	}

	// --- Stores, all sharing the one handle ---

	accounts, err := account.NewStore(handle)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating account store: %w", err)
	}
	usage, err := ledger.New(handle)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating usage ledger: %w", err)
	}
	projects, err := workspace.NewStore(handle)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating workspace store: %w", err)
	}
	documents, err := knowledge.NewStore(handle)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating knowledge store: %w", err)
	}

	// --- Knowledge backend and the caches in front of it ---

	adapter := knowledge.NewAdapter(
		knowledge.NewHashEmbedder(0),
		documents,
		logger.Named("knowledge"),
		knowledge.WithTimeout(cfg.Backend.Timeout),
		knowledge.WithMaxRetries(cfg.Backend.MaxRetries),
		knowledge.WithRetryInterval(cfg.Backend.RetryInterval),
	)
	embeddings := cache.NewEmbeddingCache(adapter.Embed, cfg.Cache.EmbeddingMaxEntries)
	searches := cache.NewSearchCache(func(ctx context.Context, query, scopeID string, topK int) ([]knowledge.Result, error) {
		vector, err := embeddings.GetOrCompute(ctx, query)
		if err != nil {
			return nil, err
		}
		return adapter.Search(ctx, vector, scopeID, topK)
	}, cfg.Cache.SearchTTL)

	// --- Dispatcher over the handler registry ---

	tiers := cfg.Catalog()
	registry := dispatch.NewRegistry()
	if err := handlers.Register(registry, handlers.Deps{
		Projects:   projects,
		Documents:  documents,
		Embeddings: embeddings,
		Searches:   searches,
	}); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("registering handlers: %w", err)
	}
	if err := registry.Verify(); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("verifying handler registry: %w", err)
	}
	dispatcher := dispatch.New(registry, accounts, tiers, usage, logger.Named("dispatch"))

	// --- The MCP server ---

	s := server.NewMCPServer(
		"atelier",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register dispatched action tools ---

	projectCreate := tools.NewProjectCreateTool(dispatcher)
	s.AddTool(projectCreate.Definition(), projectCreate.Handle)

	projectAdvance := tools.NewProjectAdvanceTool(dispatcher)
	s.AddTool(projectAdvance.Definition(), projectAdvance.Handle)

	collaborator := tools.NewCollaboratorTool(dispatcher)
	s.AddTool(collaborator.Definition(), collaborator.Handle)

	docImport := tools.NewDocumentImportTool(dispatcher)
	s.AddTool(docImport.Definition(), docImport.Handle)

	docRemove := tools.NewDocumentRemoveTool(dispatcher)
	s.AddTool(docRemove.Definition(), docRemove.Handle)

	search := tools.NewSearchTool(dispatcher)
	s.AddTool(search.Definition(), search.Handle)

	status := tools.NewWorkspaceStatusTool(dispatcher)
	s.AddTool(status.Definition(), status.Handle)

	// --- Register account administration tools ---

	accountCreate := tools.NewAccountCreateTool(accounts, tiers)
	s.AddTool(accountCreate.Definition(), accountCreate.Handle)

	accountTier := tools.NewAccountTierTool(accounts, tiers)
	s.AddTool(accountTier.Definition(), accountTier.Handle)

	testingMode := tools.NewAccountTestingModeTool(accounts)
	s.AddTool(testingMode.Definition(), testingMode.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(accounts, usage, tiers)
	s.AddResourceTemplate(resourceHandler.UsageResource(), resourceHandler.HandleUsage)

	return s, cleanup, nil
}

// noop is the default cleanup when startup fails before the database
// handle is owned by a server.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// host how to use the workspace.
func serverInstructions() string {
	return `You have access to Atelier, an AI-assisted collaborative workspace.

## Accounts and quotas
Every action runs on behalf of an account (account_id). Accounts sit on
subscription tiers (free, studio, unlimited) that bound how many
projects they own, how many collaborators each project has, how many
actions they perform per month, and how much document storage they use.
When an action is denied you get a message naming the exceeded
dimension and the current/limit values — report it to the user rather
than retrying.

Reads (knowledge_search, workspace_status) are free: they never count
against quotas.

## Projects
Projects move through four phases: brief → draft → review → final.
Create one with project_create, move it forward with
project_advance_phase (owner only), and invite collaborators with
project_add_collaborator.

## Knowledge base
Each project has a knowledge base for reference documents. Import with
knowledge_import, remove with knowledge_remove, and query with
knowledge_search (semantic similarity, not keyword match). Recent
identical searches are served from a cache; imports and removals
refresh it, so search results always reflect the latest writes.

## Usage
Read atelier://accounts/{id}/usage to see an account's current counters
against its tier limits. Check it before large imports.`
}
