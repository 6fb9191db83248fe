package resources_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/ledger"
	"github.com/atelierhq/atelier/internal/resources"
	"github.com/atelierhq/atelier/internal/tier"
)

type fakeAccounts map[string]account.Account

func (f fakeAccounts) Get(_ context.Context, id string) (account.Account, error) {
	acct, ok := f[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func newTestHandler(t *testing.T) (*resources.Handler, *ledger.Ledger) {
	t.Helper()
	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	usage, err := ledger.New(handle)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	accounts := fakeAccounts{
		"acct-1": {ID: "acct-1", Tier: tier.TierFree},
	}
	return resources.NewHandler(accounts, usage, tier.DefaultCatalog()), usage
}

func readUsage(t *testing.T, h *resources.Handler, uri string) map[string]any {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	contents, err := h.HandleUsage(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleUsage failed: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents length = %d, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T", contents[0])
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(text.Text), &report); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	return report
}

func TestHandleUsageReportsCountersAndLimits(t *testing.T) {
	h, usage := newTestHandler(t)
	ctx := context.Background()

	err := usage.Locked("acct-1", func(a ledger.Account) error {
		if _, err := a.Read(ctx); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			if err := a.RecordAction(ctx); err != nil {
				return err
			}
		}
		return a.RecordStorageDelta(ctx, 2048)
	})
	if err != nil {
		t.Fatalf("seeding usage failed: %v", err)
	}

	report := readUsage(t, h, "atelier://accounts/acct-1/usage")
	if report["account_id"] != "acct-1" {
		t.Errorf("account_id = %v", report["account_id"])
	}
	if report["tier"] != "free" {
		t.Errorf("tier = %v", report["tier"])
	}

	dimensions := report["dimensions"].(map[string]any)
	actions := dimensions["actions_monthly"].(map[string]any)
	if actions["used"].(float64) != 3 {
		t.Errorf("actions used = %v, want 3", actions["used"])
	}
	if actions["limit"] != "100" {
		t.Errorf("actions limit = %v, want 100", actions["limit"])
	}
	storage := dimensions["storage_bytes"].(map[string]any)
	if storage["used"].(float64) != 2048 {
		t.Errorf("storage used = %v, want 2048", storage["used"])
	}
}

func TestHandleUsageUnknownAccount(t *testing.T) {
	h, _ := newTestHandler(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "atelier://accounts/nobody/usage"
	if _, err := h.HandleUsage(context.Background(), req); err == nil {
		t.Error("expected an error for an unknown account")
	}
}

func TestHandleUsageMalformedURI(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, uri := range []string{
		"atelier://accounts//usage",
		"atelier://accounts/acct-1",
		"other://accounts/acct-1/usage",
	} {
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		if _, err := h.HandleUsage(context.Background(), req); err == nil {
			t.Errorf("expected an error for URI %q", uri)
		}
	}
}
