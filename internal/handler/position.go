package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/store"
)

// SavePosition handles PUT /api/videos/{id}/position.
func (h *Handlers) SavePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Position < 0 {
		writeError(w, http.StatusBadRequest, "position is required")
		return
	}

	pos := store.PlaybackPosition{
		Position:  body.Position,
		UpdatedAt: time.Now().Unix(),
	}
	if err := h.store.SavePlaybackPosition(r.Context(), id, pos); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("saving playback position failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving position failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPosition handles GET /api/videos/{id}/position. Videos never watched
// report position zero.
func (h *Handlers) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pos, err := h.store.PlaybackPosition(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, store.PlaybackPosition{})
			return
		}
		h.logger.Error("fetching playback position failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching position failed")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
