// Package handlers implements the capability handlers behind the
// dispatcher: project lifecycle, knowledge import/removal/search, and
// workspace status. Handlers never touch the usage ledger; they report
// resource deltas through their outcome and the dispatcher records
// them.
package handlers

import (
	"fmt"

	"github.com/atelierhq/atelier/internal/cache"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/workspace"
)

// Deps bundles the stores and caches the handlers operate on. All of
// them share the one database handle the composition root opened.
type Deps struct {
	Projects   *workspace.Store
	Documents  *knowledge.Store
	Embeddings *cache.EmbeddingCache
	Searches   *cache.SearchCache
}

// Register binds one handler to every declared action kind. The caller
// verifies the registry afterwards.
func Register(reg *dispatch.Registry, d Deps) error {
	bindings := map[dispatch.Kind]dispatch.Handler{
		dispatch.KindProjectCreate:          &ProjectCreate{Projects: d.Projects},
		dispatch.KindProjectAdvancePhase:    &ProjectAdvancePhase{Projects: d.Projects},
		dispatch.KindProjectAddCollaborator: &ProjectAddCollaborator{Projects: d.Projects},
		dispatch.KindDocumentImport:         &DocumentImport{Documents: d.Documents, Embeddings: d.Embeddings, Searches: d.Searches},
		dispatch.KindDocumentRemove:         &DocumentRemove{Documents: d.Documents, Searches: d.Searches},
		dispatch.KindSearch:                 &Search{Searches: d.Searches},
		dispatch.KindWorkspaceStatus:        &WorkspaceStatus{Projects: d.Projects, Documents: d.Documents},
	}
	for kind, h := range bindings {
		if err := reg.Register(kind, h); err != nil {
			return err
		}
	}
	return nil
}

// missingArgError reports a payload missing a required field.
func missingArgError(action dispatch.Kind, field string) error {
	return fmt.Errorf("handlers: %s: missing required argument %q", action, field)
}
