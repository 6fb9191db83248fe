package handlers

import (
	"context"
	"time"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/quota"
	"github.com/atelierhq/atelier/internal/workspace"
)

// ProjectPayload is the response shape for project actions.
type ProjectPayload struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Phase     string `json:"phase"`
	OwnerID   string `json:"owner_id"`
	CreatedAt string `json:"created_at"`
}

func projectPayload(p workspace.Project) ProjectPayload {
	return ProjectPayload{
		ProjectID: p.ID,
		Name:      p.Name,
		Phase:     string(p.Phase),
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// ProjectCreate creates a project in the brief phase.
type ProjectCreate struct {
	Projects *workspace.Store
}

func (h *ProjectCreate) Cost(_ dispatch.Payload) quota.Delta {
	return quota.Delta{Projects: 1}
}

func (h *ProjectCreate) Handle(ctx context.Context, acct account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	name := p.String("name", "")
	if name == "" {
		return nil, missingArgError(dispatch.KindProjectCreate, "name")
	}

	project, err := h.Projects.CreateProject(ctx, acct.ID, name)
	if err != nil {
		return nil, err
	}
	return &dispatch.Outcome{
		Payload: projectPayload(project),
		Delta:   quota.Delta{Projects: 1},
	}, nil
}

// ProjectAdvancePhase moves a project to its next phase. Only the owner
// may advance, and final has no successor.
type ProjectAdvancePhase struct {
	Projects *workspace.Store
}

func (h *ProjectAdvancePhase) Cost(_ dispatch.Payload) quota.Delta {
	return quota.Delta{}
}

func (h *ProjectAdvancePhase) Handle(ctx context.Context, acct account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	projectID := p.String("project_id", "")
	if projectID == "" {
		return nil, missingArgError(dispatch.KindProjectAdvancePhase, "project_id")
	}

	project, err := h.Projects.AdvancePhase(ctx, projectID, acct.ID)
	if err != nil {
		return nil, err
	}
	return &dispatch.Outcome{Payload: projectPayload(project)}, nil
}

// ProjectAddCollaborator invites an account into a project.
type ProjectAddCollaborator struct {
	Projects *workspace.Store
}

func (h *ProjectAddCollaborator) Cost(p dispatch.Payload) quota.Delta {
	return quota.Delta{
		Collaborators: 1,
		ProjectID:     p.String("project_id", ""),
	}
}

func (h *ProjectAddCollaborator) Handle(ctx context.Context, _ account.Account, p dispatch.Payload) (*dispatch.Outcome, error) {
	projectID := p.String("project_id", "")
	if projectID == "" {
		return nil, missingArgError(dispatch.KindProjectAddCollaborator, "project_id")
	}
	collaboratorID := p.String("collaborator_id", "")
	if collaboratorID == "" {
		return nil, missingArgError(dispatch.KindProjectAddCollaborator, "collaborator_id")
	}

	collab, err := h.Projects.AddCollaborator(ctx, projectID, collaboratorID)
	if err != nil {
		return nil, err
	}
	return &dispatch.Outcome{
		Payload: map[string]any{
			"project_id":      collab.ProjectID,
			"collaborator_id": collab.AccountID,
			"added_at":        collab.AddedAt.Format(time.RFC3339),
		},
		Delta: quota.Delta{Collaborators: 1, ProjectID: projectID},
	}, nil
}
