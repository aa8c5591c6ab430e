package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/manager"
	"github.com/nickbreaton/video-slug/internal/model"
)

// Download handles POST /api/videos. It blocks until the downloader has
// produced the video's metadata record, then responds while the download
// itself continues in the background.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	var req model.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := validateDownloadURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	md, err := h.manager.Initiate(r.Context(), req.URL)
	if err != nil {
		var initErr *manager.InitiationError
		if errors.As(err, &initErr) {
			h.logger.Warn("download initiation failed",
				zap.String("url", req.URL), zap.String("reason", initErr.Message))
			writeError(w, http.StatusBadGateway, initErr.Message)
			return
		}
		// The request itself was cancelled; nobody is listening anymore.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		h.logger.Error("download initiation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}

	writeJSON(w, http.StatusCreated, md)
}
