package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/luminolworks/lexibot/common/version"
	"github.com/luminolworks/lexibot/internal/store"
)

// HealthServer exposes the liveness endpoint required by the hosting
// platform, plus a small status page.
type HealthServer struct {
	store   *store.Store
	server  *http.Server
	started time.Time
	log     *slog.Logger
}

// NewHealthServer creates the health server on the given listen address.
func NewHealthServer(addr string, st *store.Store) *HealthServer {
	h := &HealthServer{
		store:   st,
		started: time.Now(),
		log:     slog.With("component", "health"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)

	h.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return h
}

// Start runs the HTTP listener until Stop is called.
func (h *HealthServer) Start() {
	h.log.Info("health server listening", "addr", h.server.Addr)
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.log.Error("health server failed", "error", err)
	}
}

// Stop shuts the listener down gracefully.
func (h *HealthServer) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *HealthServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ProfileCount(r.Context())
	if err != nil {
		h.log.Error("failed to count profiles", "error", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version":  version.Version,
		"commit":   version.GitCommit,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"profiles": profiles,
	})
}
