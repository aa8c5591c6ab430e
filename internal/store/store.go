// Package store persists video metadata records and per-video playback
// positions.
package store

import (
	"context"
	"errors"

	"github.com/nickbreaton/video-slug/internal/event"
)

// ErrNotFound is returned for lookups and deletions of unknown video ids.
var ErrNotFound = errors.New("video record not found")

// PlaybackPosition is the last watched position within a video, in seconds.
type PlaybackPosition struct {
	Position  float64 `json:"position"`
	UpdatedAt int64   `json:"updatedAt"`
}

// VideoStore is the durable repository of downloaded video records.
// Deleting a video cascades to its playback position.
type VideoStore interface {
	Insert(ctx context.Context, video event.Metadata) error
	List(ctx context.Context) ([]event.Metadata, error)
	GetByID(ctx context.Context, id string) (event.Metadata, error)
	Delete(ctx context.Context, id string) error

	SavePlaybackPosition(ctx context.Context, videoID string, pos PlaybackPosition) error
	PlaybackPosition(ctx context.Context, videoID string) (PlaybackPosition, error)
}
