// Package manager orchestrates one user-initiated download end to end:
// start the session, wait synchronously for the metadata event, persist it,
// register the live stream, and drain the rest in the background.
package manager

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/broadcast"
	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/metrics"
	"github.com/nickbreaton/video-slug/internal/registry"
	"github.com/nickbreaton/video-slug/internal/session"
	"github.com/nickbreaton/video-slug/internal/store"
)

// InitiationError is the single caller-visible failure type for download
// initiation, carrying a human-readable message.
type InitiationError struct {
	Message string
}

func (e *InitiationError) Error() string { return e.Message }

// ErrUnknownDownload is returned by Progress for ids without a registered
// stream.
var ErrUnknownDownload = errors.New("unknown download id")

type Manager struct {
	store       store.VideoStore
	registry    *registry.Registry
	logger      *zap.Logger
	bin         string
	videosDir   string
	registryTTL time.Duration
}

func New(
	st store.VideoStore,
	reg *registry.Registry,
	logger *zap.Logger,
	bin, videosDir string,
	registryTTL time.Duration,
) *Manager {
	return &Manager{
		store:       st,
		registry:    reg,
		logger:      logger,
		bin:         bin,
		videosDir:   videosDir,
		registryTTL: registryTTL,
	}
}

// Initiate runs the synchronous half of a download: it blocks until the
// downloader has produced the metadata record, persists it, and registers
// the live stream — both before returning, so a caller that immediately
// lists videos or subscribes to progress observes the new download. The
// rest of the stream drains in the background, decoupled from ctx.
//
// Until the metadata event arrives the download is uncommitted: any failure
// (including ctx ending) cancels the download scope and kills the process.
func (m *Manager) Initiate(ctx context.Context, rawURL string) (md event.Metadata, err error) {
	// The process is scoped to its own context, not the request's: after
	// commitment the download must survive the caller disconnecting.
	downloadCtx, cancel := context.WithCancel(context.Background())
	committed := false
	defer func() {
		if !committed {
			cancel()
		}
	}()

	sess := session.New(m.bin, m.videosDir, rawURL, m.logger)
	stream := sess.Stream()

	// Subscribe before starting so the metadata event cannot be missed.
	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	metrics.DownloadsStartedTotal.Inc()
	if startErr := sess.Start(downloadCtx); startErr != nil {
		metrics.DownloadsFailedTotal.WithLabelValues("command").Inc()
		return event.Metadata{}, &InitiationError{Message: "Error within download command"}
	}

	md, err = m.awaitMetadata(ctx, stream, events)
	if err != nil {
		return event.Metadata{}, err
	}

	record := md
	if insertErr := m.store.Insert(ctx, record); insertErr != nil {
		metrics.DownloadsFailedTotal.WithLabelValues("store").Inc()
		m.logger.Error("saving video record failed",
			zap.String("id", md.ID), zap.Error(insertErr))
		return event.Metadata{}, &InitiationError{Message: "Error saving video info"}
	}

	m.registry.Register(md.ID, stream)

	committed = true
	metrics.ActiveDownloads.Inc()
	go m.drain(cancel, md.ID, stream)

	return md, nil
}

// awaitMetadata consumes the shared stream, discarding events, until the
// first metadata event or the end of the stream.
func (m *Manager) awaitMetadata(
	ctx context.Context,
	stream *broadcast.Stream,
	events <-chan event.Event,
) (event.Metadata, error) {
	for {
		select {
		case <-ctx.Done():
			// The initiating request itself failed; the deferred cancel in
			// Initiate tears the process down.
			metrics.DownloadsFailedTotal.WithLabelValues("cancelled").Inc()
			return event.Metadata{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return event.Metadata{}, m.classifyStreamEnd(stream)
			}
			if md, isMeta := ev.(event.Metadata); isMeta {
				return md, nil
			}
		}
	}
}

func (m *Manager) classifyStreamEnd(stream *broadcast.Stream) error {
	streamErr := stream.Err()
	switch {
	case streamErr == nil:
		metrics.DownloadsFailedTotal.WithLabelValues("no_metadata").Inc()
		return &InitiationError{Message: "Video info not found in stream"}
	case errors.Is(streamErr, session.ErrVideoNotFound):
		metrics.DownloadsFailedTotal.WithLabelValues("not_found").Inc()
		return &InitiationError{Message: "Video not found"}
	default:
		metrics.DownloadsFailedTotal.WithLabelValues("command").Inc()
		return &InitiationError{Message: "Error within download command"}
	}
}

// drain consumes the stream to completion so the process runs to exit and
// its resources are released, independent of the original request. Failures
// here are logged, never surfaced: the caller already has its response.
func (m *Manager) drain(cancel context.CancelFunc, id string, stream *broadcast.Stream) {
	defer cancel()
	defer metrics.ActiveDownloads.Dec()

	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()
	for range events {
	}

	if err := stream.Err(); err != nil {
		metrics.DownloadsFailedTotal.WithLabelValues("drain").Inc()
		m.logger.Error("download ended with error", zap.String("id", id), zap.Error(err))
	} else {
		metrics.DownloadsCompletedTotal.Inc()
		m.logger.Info("download complete", zap.String("id", id))
	}

	// Keep the finished stream discoverable for a grace window, then evict
	// so a long-running server does not accumulate entries. Eviction is
	// tied to this stream: if the id was re-registered for a newer
	// download in the meantime, the newer entry survives.
	time.AfterFunc(m.registryTTL, func() {
		m.registry.Evict(id, stream)
	})
}

// Progress resolves a video id to its live event stream.
func (m *Manager) Progress(id string) (*broadcast.Stream, error) {
	if stream, ok := m.registry.Lookup(id); ok {
		return stream, nil
	}
	return nil, ErrUnknownDownload
}
