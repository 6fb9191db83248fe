package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/dispatch"
)

// DocumentImportTool handles the knowledge_import MCP tool.
type DocumentImportTool struct {
	dispatcher ActionDispatcher
}

// NewDocumentImportTool creates a DocumentImportTool.
func NewDocumentImportTool(d ActionDispatcher) *DocumentImportTool {
	return &DocumentImportTool{dispatcher: d}
}

// Definition returns the MCP tool definition for knowledge_import.
func (t *DocumentImportTool) Definition() mcp.Tool {
	return mcp.NewTool("knowledge_import",
		mcp.WithDescription(
			"Import a document into a project's knowledge base. The document is embedded for semantic search. "+
				"Counts against the account's storage and monthly action quotas.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the action"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project whose knowledge base receives the document"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Document name (e.g. 'brand-guidelines.md')"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full document text"),
		),
	)
}

// Handle processes the knowledge_import tool call.
func (t *DocumentImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindDocumentImport,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"project_id": req.GetString("project_id", ""),
			"name":       req.GetString("name", ""),
			"content":    req.GetString("content", ""),
		},
	})
}

// DocumentRemoveTool handles the knowledge_remove MCP tool.
type DocumentRemoveTool struct {
	dispatcher ActionDispatcher
}

// NewDocumentRemoveTool creates a DocumentRemoveTool.
func NewDocumentRemoveTool(d ActionDispatcher) *DocumentRemoveTool {
	return &DocumentRemoveTool{dispatcher: d}
}

// Definition returns the MCP tool definition for knowledge_remove.
func (t *DocumentRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("knowledge_remove",
		mcp.WithDescription(
			"Remove a document from a project's knowledge base and free its storage.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the action"),
		),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document to remove"),
		),
	)
}

// Handle processes the knowledge_remove tool call.
func (t *DocumentRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindDocumentRemove,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"document_id": req.GetString("document_id", ""),
		},
	})
}

// SearchTool handles the knowledge_search MCP tool.
type SearchTool struct {
	dispatcher ActionDispatcher
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(d ActionDispatcher) *SearchTool {
	return &SearchTool{dispatcher: d}
}

// Definition returns the MCP tool definition for knowledge_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("knowledge_search",
		mcp.WithDescription(
			"Semantic search over a project's knowledge base. Read-only: never counts against quotas. "+
				"Recent identical searches are served from a short-lived cache.",
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account performing the search"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project whose knowledge base to search"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results (default 5)"),
		),
	)
}

// Handle processes the knowledge_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accountID := req.GetString("account_id", "")
	if accountID == "" {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}

	return dispatchAndRender(ctx, t.dispatcher, dispatch.Action{
		Kind:      dispatch.KindSearch,
		AccountID: accountID,
		Payload: dispatch.Payload{
			"project_id": req.GetString("project_id", ""),
			"query":      req.GetString("query", ""),
			"top_k":      intArg(req, "top_k", 0),
		},
	})
}
