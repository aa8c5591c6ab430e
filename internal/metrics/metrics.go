package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoslug_active_downloads",
		Help: "Number of downloads currently draining in the background",
	})
	ProgressSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoslug_progress_subscribers",
		Help: "Number of open progress subscription streams",
	})
)

// Counters
var (
	DownloadsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoslug_downloads_started_total",
		Help: "Total download initiations",
	})
	DownloadsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoslug_downloads_completed_total",
		Help: "Total downloads that ran to completion",
	})
	DownloadsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoslug_downloads_failed_total",
		Help: "Total failed downloads by reason",
	}, []string{"reason"})
	GCFilesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoslug_gc_files_removed_total",
		Help: "Total orphaned video files removed by the garbage collector",
	})
)
