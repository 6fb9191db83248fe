package handlers

import (
	"context"
	"time"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/knowledge"
	"github.com/atelierhq/atelier/internal/quota"
	"github.com/atelierhq/atelier/internal/workspace"
)

// WorkspaceStatus reports a project's phase, collaborator count, and
// document count. It is a read action: never gated, never counted, and
// it does not touch the usage ledger.
type WorkspaceStatus struct {
	Projects  *workspace.Store
	Documents *knowledge.Store
}

func (h *WorkspaceStatus) Cost(_ dispatch.Payload) quota.Delta {
	return quota.Delta{}
}

func (h *WorkspaceStatus) Handle(ctx context.Context, _ account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	projectID := p.String("project_id", "")
	if projectID == "" {
		return nil, missingArgError(dispatch.KindWorkspaceStatus, "project_id")
	}

	project, err := h.Projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	collaborators, err := h.Projects.CollaboratorCount(ctx, projectID)
	if err != nil {
		return nil, err
	}
	documents, err := h.Documents.CountDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &dispatch.Outcome{
		Payload: map[string]any{
			"project_id":    project.ID,
			"name":          project.Name,
			"phase":         string(project.Phase),
			"owner_id":      project.OwnerID,
			"collaborators": collaborators,
			"documents":     documents,
			"updated_at":    project.UpdatedAt.Format(time.RFC3339),
		},
	}, nil
}
