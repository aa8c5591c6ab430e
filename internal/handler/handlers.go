// Package handler implements the HTTP surface: download initiation,
// progress subscriptions, listing, deletion, file serving, and
// playback-position persistence.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/manager"
	"github.com/nickbreaton/video-slug/internal/registry"
	"github.com/nickbreaton/video-slug/internal/store"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store      store.VideoStore
	registry   *registry.Registry
	manager    *manager.Manager
	videosDir  string
	logger     *zap.Logger
	httpClient *http.Client
}

func NewHandlers(
	st store.VideoStore,
	reg *registry.Registry,
	mgr *manager.Manager,
	videosDir string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		store:      st,
		registry:   reg,
		manager:    mgr,
		videosDir:  videosDir,
		logger:     logger,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
