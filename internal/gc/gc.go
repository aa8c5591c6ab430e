// Package gc reconciles the videos directory against the metadata
// repository, removing files no record references.
package gc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/metrics"
	"github.com/nickbreaton/video-slug/internal/store"
)

type Collector struct {
	store    store.VideoStore
	dir      string
	interval time.Duration
	logger   *zap.Logger
}

func New(st store.VideoStore, dir string, interval time.Duration, logger *zap.Logger) *Collector {
	return &Collector{store: st, dir: dir, interval: interval, logger: logger}
}

// Run performs an immediate pass and then one per interval until ctx is
// cancelled.
func (c *Collector) Run(ctx context.Context) {
	if err := c.collect(ctx); err != nil {
		c.logger.Warn("garbage collection failed", zap.Error(err))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.collect(ctx); err != nil {
				c.logger.Warn("garbage collection failed", zap.Error(err))
			}
		}
	}
}

func (c *Collector) collect(ctx context.Context) error {
	videos, err := c.store.List(ctx)
	if err != nil {
		return err
	}

	referenced := make(map[string]bool, len(videos))
	for _, video := range videos {
		referenced[filepath.Base(video.Filename)] = true
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || referenced[name] {
			continue
		}
		// In-flight downloads write partial files under temporary suffixes;
		// their metadata row exists but points at the final name.
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			c.logger.Warn("removing orphaned file failed",
				zap.String("file", name), zap.Error(err))
			continue
		}
		removed = append(removed, name)
		metrics.GCFilesRemovedTotal.Inc()
	}

	if len(removed) > 0 {
		c.logger.Info("removed orphaned video files", zap.Strings("files", removed))
	}
	return nil
}
