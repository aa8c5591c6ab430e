package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/manager"
	"github.com/nickbreaton/video-slug/internal/metrics"
)

// Progress handles GET /api/videos/{id}/progress as a server-sent event
// stream. Only progress events are forwarded; the stream ends with a
// "complete" event when the download finishes, which clients use as the
// signal to refresh their video list.
func (h *Handlers) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stream, err := h.manager.Progress(id)
	if err != nil {
		if errors.Is(err, manager.ErrUnknownDownload) {
			writeError(w, http.StatusNotFound, "unknown download id")
			return
		}
		writeError(w, http.StatusInternalServerError, "progress lookup failed")
		return
	}

	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	metrics.ProgressSubscribers.Inc()
	defer metrics.ProgressSubscribers.Dec()

	events, cancel := stream.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				fl.Flush()
				return
			}
			progress, isProgress := ev.(event.Progress)
			if !isProgress {
				continue
			}
			data, err := json.Marshal(progress)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			fl.Flush()
		}
	}
}
