package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/store"
)

// lookupVideo resolves {id} to its stored record, writing the error
// response itself when that fails.
func (h *Handlers) lookupVideo(w http.ResponseWriter, r *http.Request) (event.Metadata, bool) {
	id := chi.URLParam(r, "id")
	video, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
		} else {
			h.logger.Error("fetching video failed", zap.String("id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "fetching video failed")
		}
		return event.Metadata{}, false
	}
	return video, true
}

// ServeFile handles GET /api/videos/{id}/file with standard partial-content
// semantics (Range / Content-Range / 206), which is what both the player
// and the resumable client-side cache rely on.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}

	// The downloader chooses the filename; Base strips any path component
	// so a corrupted record cannot point outside the videos directory.
	filePath := filepath.Join(h.videosDir, filepath.Base(video.Filename))
	f, err := os.Open(filePath)
	if err != nil {
		writeError(w, http.StatusNotFound, "video file not available")
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		h.logger.Error("stat failed", zap.String("path", filePath), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "file unavailable")
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(filePath))
	if ctype == "" {
		ctype = "video/mp4"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

// Thumbnail handles GET /api/videos/{id}/thumbnail by proxying the
// thumbnail URL recorded by the downloader.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	video, ok := h.lookupVideo(w, r)
	if !ok {
		return
	}
	if video.Thumbnail == nil || *video.Thumbnail == "" {
		writeError(w, http.StatusNotFound, "video has no thumbnail")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, *video.Thumbnail, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, "invalid thumbnail URL")
		return
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "thumbnail fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		writeError(w, http.StatusBadGateway, "thumbnail fetch failed")
		return
	}

	if ctype := resp.Header.Get("Content-Type"); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("Cache-Control", "max-age=31536000, immutable")
	io.Copy(w, resp.Body)
}
