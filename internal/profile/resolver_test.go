package profile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/luminolworks/lexibot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestResolveCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newTestStore(t))

	first, err := r.Resolve(ctx, "discord-1", "alice")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if first.ID == "" || first.DiscordID != "discord-1" {
		t.Fatalf("unexpected profile: %+v", first)
	}

	second, err := r.Resolve(ctx, "discord-1", "alice")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("internal id not stable: %s vs %s", first.ID, second.ID)
	}
}

func TestLookupUnknownUser(t *testing.T) {
	r := NewResolver(newTestStore(t))

	_, err := r.Lookup(context.Background(), "discord-stranger")
	if !errors.Is(err, ErrProfileUnavailable) {
		t.Errorf("expected ErrProfileUnavailable, got %v", err)
	}
}

func TestLookupAfterResolve(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newTestStore(t))

	created, err := r.Resolve(ctx, "discord-1", "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	found, err := r.Lookup(ctx, "discord-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("lookup returned different profile: %s vs %s", found.ID, created.ID)
	}
}
