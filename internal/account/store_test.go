package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/atelierhq/atelier/internal/account"
	"github.com/atelierhq/atelier/internal/db"
	"github.com/atelierhq/atelier/internal/tier"
)

func newTestStore(t *testing.T) *account.Store {
	t.Helper()
	handle, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	store, err := account.NewStore(handle)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "Mara Studio", tier.TierFree)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create returned empty id")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Mara Studio" {
		t.Errorf("Name = %q, want %q", got.Name, "Mara Studio")
	}
	if got.Tier != tier.TierFree {
		t.Errorf("Tier = %q, want %q", got.Tier, tier.TierFree)
	}
	if got.TestingMode {
		t.Error("new accounts must not start in testing mode")
	}
}

func TestGetUnknownAccount(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-account")
	if !errors.Is(err, account.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "x", tier.TierFree)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetTier(ctx, created.ID, tier.TierStudio); err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}
	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Tier != tier.TierStudio {
		t.Errorf("Tier = %q, want %q", got.Tier, tier.TierStudio)
	}
}

func TestSetTierUnknownAccount(t *testing.T) {
	store := newTestStore(t)

	err := store.SetTier(context.Background(), "no-such-account", tier.TierStudio)
	if !errors.Is(err, account.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTestingModeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "x", tier.TierFree)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetTestingMode(ctx, created.ID, true); err != nil {
		t.Fatalf("SetTestingMode failed: %v", err)
	}
	got, _ := store.Get(ctx, created.ID)
	if !got.TestingMode {
		t.Error("testing mode not persisted")
	}

	if err := store.SetTestingMode(ctx, created.ID, false); err != nil {
		t.Fatalf("SetTestingMode failed: %v", err)
	}
	got, _ = store.Get(ctx, created.ID)
	if got.TestingMode {
		t.Error("testing mode not cleared")
	}
}
