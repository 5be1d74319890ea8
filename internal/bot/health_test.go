package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/luminolworks/lexibot/internal/store"
)

func TestHealthEndpoints(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if _, err := st.UpsertProfile(context.Background(), "discord-1", "alice"); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	h := NewHealthServer(":0", st)
	srv := httptest.NewServer(h.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /status, got %d", resp.StatusCode)
	}

	var status struct {
		Profiles int    `json:"profiles"`
		Version  string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Profiles != 1 {
		t.Errorf("expected 1 profile in status, got %d", status.Profiles)
	}
	if status.Version == "" {
		t.Errorf("status missing version")
	}
}
