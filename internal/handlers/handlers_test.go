package handlers_test

import (
	"context"
	"errors"
	"testing"

	"cdr.dev/slog/v3/sloggers/slogtest"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/cache"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/handlers"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/workspace"
)

type env struct {
	deps     handlers.Deps
	registry *dispatch.Registry
	searches *cache.SearchCache
}

// newEnv wires the handlers the way the composition root does: one
// shared database, the hash embedder behind the adapter, and both
// caches in front of it.
func newEnv(t *testing.T) *env {
	t.Helper()

	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	projects, err := workspace.NewStore(handle)
	if err != nil {
		t.Fatalf("failed to create workspace store: %v", err)
	}
	documents, err := knowledge.NewStore(handle)
	if err != nil {
		t.Fatalf("failed to create knowledge store: %v", err)
	}

	logger := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	adapter := knowledge.NewAdapter(knowledge.NewHashEmbedder(0), documents, logger)

	embeddings := cache.NewEmbeddingCache(adapter.Embed, 0)
	searches := cache.NewSearchCache(func(ctx context.Context, query, scopeID string, topK int) ([]knowledge.Result, error) {
		vector, err := embeddings.GetOrCompute(ctx, query)
		if err != nil {
			return nil, err
		}
		return adapter.Search(ctx, vector, scopeID, topK)
	}, 0)

	deps := handlers.Deps{
		Projects:   projects,
		Documents:  documents,
		Embeddings: embeddings,
		Searches:   searches,
	}
	registry := dispatch.NewRegistry()
	if err := handlers.Register(registry, deps); err != nil {
		t.Fatalf("register handlers failed: %v", err)
	}
	if err := registry.Verify(); err != nil {
		t.Fatalf("registry verify failed: %v", err)
	}

	return &env{deps: deps, registry: registry, searches: searches}
}

func (e *env) handle(t *testing.T, kind dispatch.Kind, acct account.Account, p dispatch.Payload) *dispatch.Outcome {
	t.Helper()
	h, ok := e.registry.Lookup(kind)
	if !ok {
		t.Fatalf("no handler for %q", kind)
	}
	outcome, err := h.Handle(context.Background(), acct, p)
	if err != nil {
		t.Fatalf("%s failed: %v", kind, err)
	}
	return outcome
}

var owner = account.Account{ID: "acct-owner", Tier: "studio"}

func TestProjectCreateReportsProjectDelta(t *testing.T) {
	e := newEnv(t)

	outcome := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "brand site"})
	if outcome.Delta.Projects != 1 {
		t.Errorf("Delta.Projects = %d, want 1", outcome.Delta.Projects)
	}

	payload, ok := outcome.Payload.(handlers.ProjectPayload)
	if !ok {
		t.Fatalf("payload type = %T", outcome.Payload)
	}
	if payload.Phase != string(workspace.PhaseBrief) {
		t.Errorf("new project phase = %q, want %q", payload.Phase, workspace.PhaseBrief)
	}
	if payload.OwnerID != owner.ID {
		t.Errorf("owner = %q, want %q", payload.OwnerID, owner.ID)
	}
}

func TestProjectCreateRequiresName(t *testing.T) {
	e := newEnv(t)

	h, _ := e.registry.Lookup(dispatch.KindProjectCreate)
	if _, err := h.Handle(context.Background(), owner, dispatch.Payload{}); err == nil {
		t.Error("expected missing-argument error for empty name")
	}
}

func TestAdvancePhaseRejectsNonOwner(t *testing.T) {
	e := newEnv(t)

	created := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "poster"})
	projectID := created.Payload.(handlers.ProjectPayload).ProjectID

	h, _ := e.registry.Lookup(dispatch.KindProjectAdvancePhase)
	_, err := h.Handle(context.Background(), account.Account{ID: "acct-other"},
		dispatch.Payload{"project_id": projectID})
	if !errors.Is(err, workspace.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestAddCollaboratorCostCarriesProjectID(t *testing.T) {
	e := newEnv(t)

	h, _ := e.registry.Lookup(dispatch.KindProjectAddCollaborator)
	cost := h.Cost(dispatch.Payload{"project_id": "proj-9", "collaborator_id": "acct-b"})
	if cost.Collaborators != 1 || cost.ProjectID != "proj-9" {
		t.Errorf("cost = %+v, want one collaborator on proj-9", cost)
	}
}

func TestImportSearchRemoveRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "style guide"})
	projectID := created.Payload.(handlers.ProjectPayload).ProjectID

	content := "typography rules for headings and body copy"
	imported := e.handle(t, dispatch.KindDocumentImport, owner, dispatch.Payload{
		"project_id": projectID,
		"name":       "typography.md",
		"content":    content,
	})
	if imported.Delta.StorageBytes != int64(len(content)) {
		t.Errorf("Delta.StorageBytes = %d, want %d", imported.Delta.StorageBytes, len(content))
	}
	docID := imported.Payload.(map[string]any)["document_id"].(string)

	found := e.handle(t, dispatch.KindSearch, owner, dispatch.Payload{
		"project_id": projectID,
		"query":      "typography headings",
	})
	results := found.Payload.(map[string]any)["results"].([]knowledge.Result)
	if len(results) != 1 || results[0].DocumentID != docID {
		t.Fatalf("search results = %+v, want the imported document", results)
	}

	removed := e.handle(t, dispatch.KindDocumentRemove, owner, dispatch.Payload{"document_id": docID})
	if removed.Delta.StorageBytes != -int64(len(content)) {
		t.Errorf("Delta.StorageBytes = %d, want %d", removed.Delta.StorageBytes, -len(content))
	}

	// The removal invalidated the scope, so this search runs fresh and
	// sees the empty store instead of the cached hit.
	h, _ := e.registry.Lookup(dispatch.KindSearch)
	after, err := h.Handle(ctx, owner, dispatch.Payload{
		"project_id": projectID,
		"query":      "typography headings",
	})
	if err != nil {
		t.Fatalf("search after removal failed: %v", err)
	}
	if results := after.Payload.(map[string]any)["results"].([]knowledge.Result); len(results) != 0 {
		t.Errorf("stale results served after removal: %+v", results)
	}
}

func TestImportInvalidatesOnlyItsScope(t *testing.T) {
	e := newEnv(t)

	projA := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "a"}).
		Payload.(handlers.ProjectPayload).ProjectID
	projB := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "b"}).
		Payload.(handlers.ProjectPayload).ProjectID

	// Warm the cache for both scopes.
	e.handle(t, dispatch.KindSearch, owner, dispatch.Payload{"project_id": projA, "query": "logo"})
	e.handle(t, dispatch.KindSearch, owner, dispatch.Payload{"project_id": projB, "query": "logo"})
	if e.searches.Len() != 2 {
		t.Fatalf("cached entries = %d, want 2", e.searches.Len())
	}

	e.handle(t, dispatch.KindDocumentImport, owner, dispatch.Payload{
		"project_id": projA,
		"name":       "logo-brief.md",
		"content":    "the logo should use the primary palette",
	})
	if e.searches.Len() != 1 {
		t.Errorf("cached entries after import = %d, want only the other scope's entry", e.searches.Len())
	}
}

func TestStatusReportsCounts(t *testing.T) {
	e := newEnv(t)

	projectID := e.handle(t, dispatch.KindProjectCreate, owner, dispatch.Payload{"name": "campaign"}).
		Payload.(handlers.ProjectPayload).ProjectID
	e.handle(t, dispatch.KindProjectAddCollaborator, owner, dispatch.Payload{
		"project_id": projectID, "collaborator_id": "acct-b",
	})
	e.handle(t, dispatch.KindDocumentImport, owner, dispatch.Payload{
		"project_id": projectID, "name": "notes.md", "content": "kickoff notes",
	})

	status := e.handle(t, dispatch.KindWorkspaceStatus, owner, dispatch.Payload{"project_id": projectID}).
		Payload.(map[string]any)
	if status["collaborators"].(int64) != 1 {
		t.Errorf("collaborators = %v, want 1", status["collaborators"])
	}
	if status["documents"].(int64) != 1 {
		t.Errorf("documents = %v, want 1", status["documents"])
	}
	if status["phase"].(string) != string(workspace.PhaseBrief) {
		t.Errorf("phase = %v, want brief", status["phase"])
	}
}
