package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/model"
	"github.com/nickbreaton/video-slug/internal/store"
)

// enhance derives the download status for a stored record by
// cross-referencing the file on disk and the session registry.
func (h *Handlers) enhance(video event.Metadata) model.EnhancedVideo {
	out := model.EnhancedVideo{Info: video, Status: model.StatusError}

	filePath := filepath.Join(h.videosDir, filepath.Base(video.Filename))
	if fi, err := os.Stat(filePath); err == nil {
		size := fi.Size()
		out.Status = model.StatusComplete
		out.TotalBytes = &size
		return out
	}

	if _, ok := h.registry.Lookup(video.ID); ok {
		out.Status = model.StatusDownloading
	}
	return out
}

// ListVideos handles GET /api/videos.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing videos failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing videos failed")
		return
	}

	enhanced := make([]model.EnhancedVideo, 0, len(videos))
	for _, video := range videos {
		enhanced = append(enhanced, h.enhance(video))
	}
	writeJSON(w, http.StatusOK, enhanced)
}

// GetVideo handles GET /api/videos/{id}.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	video, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("fetching video failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching video failed")
		return
	}
	writeJSON(w, http.StatusOK, h.enhance(video))
}

// DeleteVideo handles DELETE /api/videos/{id}. The playback position goes
// with the record; the file itself is left for the garbage collector.
// Deletion failures are logged in full and returned opaquely.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("deleting video failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deletion failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
