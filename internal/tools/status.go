package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/dispatch"
)

// WorkspaceStatusTool handles the workspace_status MCP tool.
type WorkspaceStatusTool struct {
	dispatcher ActionDispatcher
}

// NewWorkspaceStatusTool creates a WorkspaceStatusTool.
func NewWorkspaceStatusTool(d ActionDispatcher) *WorkspaceStatusTool {
	return &WorkspaceStatusTool{dispatcher: d}
}

// Definition returns the MCP tool definition for workspace_status.
func (t *WorkspaceStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("workspace_status",
		mcp.WithDescription(
			"Report a project's phase, collaborator count, and document count. Read-only: never counts against quotas.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the query"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project to report on"),
		),
	)
}

// Handle processes the workspace_status tool call.
func (t *WorkspaceStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindWorkspaceStatus,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"project_id": req.GetString("project_id", ""),
		},
	})
}
