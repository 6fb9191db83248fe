package tools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/dispatch"
	"github.com/atelierhq/atelier/internal/quota"
	"github.com/atelierhq/atelier/internal/tier"
	"github.com/atelierhq/atelier/internal/tools"
)

// fakeDispatcher records the last action and returns a canned result.
type fakeDispatcher struct {
	last   dispatch.Action
	result dispatch.Result
}

func (f *fakeDispatcher) Dispatch(_ context.Context, action dispatch.Action) dispatch.Result {
	f.last = action
	return f.result
}

func callTool(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("tool handler failed: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("tool result has no text content")
	return ""
}

func TestSearchToolBuildsAction(t *testing.T) {
	d := &fakeDispatcher{result: dispatch.Result{
		Status:  dispatch.StatusSuccess,
		Payload: map[string]any{"results": []any{}},
	}}

	tool := tools.NewSearchTool(d)
	res := callTool(t, tool.Handle, map[string]any{
		"account_id": "acct-1",
		"project_id": "proj-1",
		"query":      "brand palette",
		"top_k":      float64(3), // JSON numbers arrive as float64
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	if d.last.Kind != dispatch.KindSearch {
		t.Errorf("kind = %q, want %q", d.last.Kind, dispatch.KindSearch)
	}
	if d.last.AccountID != "acct-1" {
		t.Errorf("account id = %q", d.last.AccountID)
	}
	if d.last.Payload.Int("top_k", 0) != 3 {
		t.Errorf("top_k = %d, want 3", d.last.Payload.Int("top_k", 0))
	}
}

func TestToolRequiresAccountID(t *testing.T) {
	d := &fakeDispatcher{}
	tool := tools.NewProjectCreateTool(d)

	res := callTool(t, tool.Handle, map[string]any{"name": "x"})
	if !res.IsError {
		t.Error("expected a tool error for missing account_id")
	}
	if d.last.Kind != "" {
		t.Error("dispatcher was called despite missing account_id")
	}
}

func TestQuotaDenialRendersDecisionMessage(t *testing.T) {
	d := &fakeDispatcher{result: dispatch.Result{
		Status: dispatch.StatusDenied,
		Err: &dispatch.QuotaExceededError{Decision: quota.Decision{
			Allowed: false,
			Reason:  quota.ReasonActionLimit,
			Current: 100,
			Limit:   tier.Limit(100),
		}},
	}}

	tool := tools.NewProjectCreateTool(d)
	res := callTool(t, tool.Handle, map[string]any{
		"account_id": "acct-1",
		"name":       "over the line",
	})
	if !res.IsError {
		t.Fatal("expected a tool error for a quota denial")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "monthly action limit reached (100 of 100)") {
		t.Errorf("denial message = %q", text)
	}
}

func TestSuccessRendersJSONPayload(t *testing.T) {
	d := &fakeDispatcher{result: dispatch.Result{
		Status:  dispatch.StatusSuccess,
		Payload: map[string]any{"project_id": "proj-9", "phase": "brief"},
	}}

	tool := tools.NewWorkspaceStatusTool(d)
	res := callTool(t, tool.Handle, map[string]any{
		"account_id": "acct-1",
		"project_id": "proj-9",
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"project_id": "proj-9"`) {
		t.Errorf("payload not rendered as JSON: %q", text)
	}
}
