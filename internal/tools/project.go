package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/dispatch"
)

// ProjectCreateTool handles the project_create MCP tool.
type ProjectCreateTool struct {
	dispatcher ActionDispatcher
}

// NewProjectCreateTool creates a ProjectCreateTool.
func NewProjectCreateTool(d ActionDispatcher) *ProjectCreateTool {
	return &ProjectCreateTool{dispatcher: d}
}

// Definition returns the MCP tool definition for project_create.
func (t *ProjectCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("project_create",
		mcp.WithDescription(
			"Create a new workspace project in the brief phase. Counts against the account's project and monthly action quotas.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the action"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
	)
}

// Handle processes the project_create tool call.
func (t *ProjectCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindProjectCreate,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"name": req.GetString("name", ""),
		},
	})
}

// ProjectAdvanceTool handles the project_advance_phase MCP tool.
type ProjectAdvanceTool struct {
	dispatcher ActionDispatcher
}

// NewProjectAdvanceTool creates a ProjectAdvanceTool.
func NewProjectAdvanceTool(d ActionDispatcher) *ProjectAdvanceTool {
	return &ProjectAdvanceTool{dispatcher: d}
}

// Definition returns the MCP tool definition for project_advance_phase.
func (t *ProjectAdvanceTool) Definition() mcp.Tool {
	return mcp.NewTool("project_advance_phase",
		mcp.WithDescription(
			"Advance a project to its next phase (brief → draft → review → final). Only the project owner may advance.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the action"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project to advance"),
		),
	)
}

// Handle processes the project_advance_phase tool call.
func (t *ProjectAdvanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindProjectAdvancePhase,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"project_id": req.GetString("project_id", ""),
		},
	})
}

// CollaboratorTool handles the project_add_collaborator MCP tool.
type CollaboratorTool struct {
	dispatcher ActionDispatcher
}

// NewCollaboratorTool creates a CollaboratorTool.
func NewCollaboratorTool(d ActionDispatcher) *CollaboratorTool {
	return &CollaboratorTool{dispatcher: d}
}

// Definition returns the MCP tool definition for project_add_collaborator.
func (t *CollaboratorTool) Definition() mcp.Tool {
	return mcp.NewTool("project_add_collaborator",
		mcp.WithDescription(
			"Invite another account into a project. Counts against the project's collaborator quota.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the action"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project to invite into"),
		),
		mcp.WithString("collaborator_id",
			mcp.Required(),
			mcp.Description("Account being invited"),
		),
	)
}

// Handle processes the project_add_collaborator tool call.
func (t *CollaboratorTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindProjectAddCollaborator,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"project_id":      req.GetString("project_id", ""),
			"collaborator_id": req.GetString("collaborator_id", ""),
		},
	})
}
