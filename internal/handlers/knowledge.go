package handlers

import (
	"context"
	"time"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/cache"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/quota"
)

// DocumentImport embeds a document and stores it in a project's scope.
// The scope's cached searches are invalidated before the action
// returns, so a search issued after the import never sees pre-import
// results.
type DocumentImport struct {
	Documents  *knowledge.Store
	Embeddings *cache.EmbeddingCache
	Searches   *cache.SearchCache
}

func (h *DocumentImport) Cost(p dispatch.Payload) quota.Delta {
	return quota.Delta{StorageBytes: int64(len(p.String("content", "")))}
}

func (h *DocumentImport) Handle(ctx context.Context, _ account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	projectID := p.String("project_id", "")
	if projectID == "" {
		return nil, missingArgError(dispatch.KindDocumentImport, "project_id")
	}
	name := p.String("name", "")
	if name == "" {
		return nil, missingArgError(dispatch.KindDocumentImport, "name")
	}
	content := p.String("content", "")
	if content == "" {
		return nil, missingArgError(dispatch.KindDocumentImport, "content")
	}

	vector, err := h.Embeddings.GetOrCompute(ctx, content)
	if err != nil {
		return nil, err
	}

	doc, err := h.Documents.AddDocument(ctx, knowledge.AddDocumentParams{
		ScopeID:   projectID,
		Name:      name,
		Content:   content,
		Embedding: vector,
	})
	if err != nil {
		return nil, err
	}
	h.Searches.InvalidateScope(projectID)

	return &dispatch.Outcome{
		Payload: map[string]any{
			"document_id": doc.ID,
			"project_id":  doc.ScopeID,
			"name":        doc.Name,
			"size_bytes":  doc.SizeBytes,
			"created_at":  doc.CreatedAt.Format(time.RFC3339),
		},
		Delta: quota.Delta{StorageBytes: doc.SizeBytes},
	}, nil
}

// DocumentRemove deletes a document and frees its storage.
type DocumentRemove struct {
	Documents *knowledge.Store
	Searches  *cache.SearchCache
}

func (h *DocumentRemove) Cost(_ dispatch.Payload) quota.Delta {
	// Removal only frees resources; the gate has nothing to check.
	return quota.Delta{}
}

func (h *DocumentRemove) Handle(ctx context.Context, _ account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	documentID := p.String("document_id", "")
	if documentID == "" {
		return nil, missingArgError(dispatch.KindDocumentRemove, "document_id")
	}

	doc, err := h.Documents.DeleteDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	h.Searches.InvalidateScope(doc.ScopeID)

	return &dispatch.Outcome{
		Payload: map[string]any{
			"document_id": doc.ID,
			"project_id":  doc.ScopeID,
			"freed_bytes": doc.SizeBytes,
		},
		Delta: quota.Delta{StorageBytes: -doc.SizeBytes},
	}, nil
}

// Search runs a semantic search over a project's documents, served from
// the result cache when a fresh entry exists.
type Search struct {
	Searches *cache.SearchCache
}

// defaultTopK bounds result lists when the caller does not ask for a
// specific count.
const defaultTopK = 5

func (h *Search) Cost(_ dispatch.Payload) quota.Delta {
	return quota.Delta{}
}

func (h *Search) Handle(ctx context.Context, _ account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	projectID := p.String("project_id", "")
	if projectID == "" {
		return nil, missingArgError(dispatch.KindSearch, "project_id")
	}
	query := p.String("query", "")
	if query == "" {
		return nil, missingArgError(dispatch.KindSearch, "query")
	}
	topK := p.Int("top_k", defaultTopK)
	if topK <= 0 {
		topK = defaultTopK
	}

	results, err := h.Searches.GetOrSearch(ctx, query, projectID, topK)
	if err != nil {
		return nil, err
	}
	return &dispatch.Outcome{
		Payload: map[string]any{
			"project_id": projectID,
			"query":      query,
			"results":    results,
		},
	}, nil
}
