package session

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "checkout-1", KeySessionID, "s1"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := store.Get(ctx, "checkout-1", KeySessionID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "s1" {
		t.Fatalf("expected s1, got %q", value)
	}

	if err := store.Unset(ctx, "checkout-1", KeySessionID); err != nil {
		t.Fatalf("Unset returned error: %v", err)
	}
	value, _ = store.Get(ctx, "checkout-1", KeySessionID)
	if value != "" {
		t.Fatalf("expected empty value after unset, got %q", value)
	}
}

func TestMemoryStoreMissingKeyReadsEmpty(t *testing.T) {
	store := NewMemoryStore()

	value, err := store.Get(context.Background(), "checkout-1", KeyClientToken)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty string for missing key, got %q", value)
	}
}

func TestMemoryStoreIsolatesCheckouts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "checkout-1", KeySessionID, "s1")
	_ = store.Set(ctx, "checkout-2", KeySessionID, "s2")

	one, _ := store.Get(ctx, "checkout-1", KeySessionID)
	two, _ := store.Get(ctx, "checkout-2", KeySessionID)
	if one != "s1" || two != "s2" {
		t.Fatalf("expected per-checkout isolation, got %q/%q", one, two)
	}

	_ = store.Unset(ctx, "checkout-1", KeySessionID)
	two, _ = store.Get(ctx, "checkout-2", KeySessionID)
	if two != "s2" {
		t.Fatalf("unset of one checkout must not affect another, got %q", two)
	}
}
