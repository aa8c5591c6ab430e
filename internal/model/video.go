package model

import "github.com/nickbreaton/video-slug/internal/event"

// Derived download status for a stored video record.
const (
	StatusDownloading = "downloading"
	StatusComplete    = "complete"
	StatusError       = "error"
)

// DownloadRequest is the request body for POST /api/videos.
type DownloadRequest struct {
	URL string `json:"url"`
}

// EnhancedVideo is a stored record annotated with its derived status:
// "complete" when the file exists on disk, "downloading" while a live
// stream is registered and the file is absent, "error" otherwise.
type EnhancedVideo struct {
	Info       event.Metadata `json:"info"`
	Status     string         `json:"status"`
	TotalBytes *int64         `json:"totalBytes,omitempty"`
}
