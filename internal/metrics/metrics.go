// Package metrics defines the Prometheus instrumentation for the tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshTotal counts refresh passes by outcome: "changed", "unchanged",
	// or "error".
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlist_refresh_total",
		Help: "Total playlist refresh passes by outcome.",
	}, []string{"outcome"})

	// RefreshDuration observes how long a full refresh pass takes, fetch
	// included.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playlist_refresh_duration_seconds",
		Help:    "Duration of playlist refresh passes.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// VideosAdded counts videos newly observed across all playlists.
	VideosAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playlist_videos_added_total",
		Help: "Videos newly observed in tracked playlists.",
	})

	// VideosRemoved counts videos flagged as removed from their playlist.
	VideosRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playlist_videos_removed_total",
		Help: "Videos flagged as removed from tracked playlists.",
	})

	// StatusChanges counts recorded availability transitions by new status.
	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlist_status_changes_total",
		Help: "Recorded video availability transitions by new status.",
	}, []string{"new_status"})

	// DownloadsTotal counts download attempts by result: "completed",
	// "failed", or "skipped".
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlist_downloads_total",
		Help: "Video download attempts by result.",
	}, []string{"result"})

	// ArchiveUploadsTotal counts archive uploads by result: "archived",
	// "skipped", or "failed".
	ArchiveUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playlist_archive_uploads_total",
		Help: "Archive upload attempts by result.",
	}, []string{"result"})
)
