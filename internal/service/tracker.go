// Package service implements the tracker's orchestration layer: refresh
// passes, query projections, and change-event publishing.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/fetch"
	"github.com/ytvault/playlist-tracker-go/internal/metrics"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/internal/reconcile"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// RefreshResult reports what one refresh pass did.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RefreshResult struct {
	PlaylistID string
	Title      string
	VideoCount int
	Changed    bool
	Version    *models.VersionEntry
}

// VideoFilter narrows ListVideos output. Nil fields match everything.
type VideoFilter struct {
	Status     *models.VideoStatus
	Downloaded *bool
}

// TrackerService coordinates fetch, reconcile, and persistence for tracked
// playlists. Refresh passes for the same playlist are serialized; different
// playlists proceed concurrently.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TrackerService struct {
	store     store.Store
	fetcher   fetch.Fetcher
	publisher ChangePublisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTrackerService creates a tracker. publisher may be nil when change
// events are disabled.
func NewTrackerService(st store.Store, fetcher fetch.Fetcher, publisher ChangePublisher) *TrackerService {
	return &TrackerService{
		store:     st,
		fetcher:   fetcher,
		publisher: publisher,
		locks:     make(map[string]*sync.Mutex),
	}
}

// playlistLock returns the mutex serializing refreshes of one playlist.
func (s *TrackerService) playlistLock(playlistID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[playlistID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playlistID] = l
	}
	return l
}

// RefreshPlaylist fetches the playlist's current entries, merges them into
// stored state, and appends a version entry when anything changed.
//
// A load failure other than a missing record aborts the pass before any
// write; reconciling against an accidentally empty base would record every
// video as newly added.
func (s *TrackerService) RefreshPlaylist(ctx context.Context, playlistURL string, depth fetch.Depth) (*RefreshResult, error) {
	if strings.TrimSpace(playlistURL) == "" {
		return nil, NewValidationError("playlist_url", "must not be empty")
	}

	started := time.Now()
	snap, err := s.fetcher.FetchPlaylist(ctx, playlistURL, depth)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, NewProcessingError("fetch", err)
	}

	lock := s.playlistLock(snap.PlaylistID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.LoadPlaylist(ctx, snap.PlaylistID)
	if err != nil && !store.IsNotFound(err) {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, NewProcessingError("load", err)
	}

	merged, entry := reconcile.Reconcile(existing, snap, time.Now().UTC())

	if err := s.store.SavePlaylist(ctx, merged); err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, NewProcessingError("save", err)
	}

	result := &RefreshResult{
		PlaylistID: merged.PlaylistID,
		Title:      merged.Title,
		VideoCount: len(merged.Videos),
	}

	if entry == nil {
		metrics.RefreshTotal.WithLabelValues("unchanged").Inc()
		metrics.RefreshDuration.Observe(time.Since(started).Seconds())
		logger.Log.Info("playlist unchanged",
			zap.String("playlist_id", merged.PlaylistID),
			zap.Int("videos", len(merged.Videos)))
		return result, nil
	}

	if err := s.store.AppendVersion(ctx, merged.PlaylistID, entry); err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, NewProcessingError("append version", err)
	}

	result.Changed = true
	result.Version = entry

	metrics.RefreshTotal.WithLabelValues("changed").Inc()
	metrics.RefreshDuration.Observe(time.Since(started).Seconds())
	metrics.VideosAdded.Add(float64(len(entry.VideosAdded)))
	metrics.VideosRemoved.Add(float64(len(entry.VideosRemoved)))
	for _, c := range entry.StatusChanges {
		metrics.StatusChanges.WithLabelValues(string(c.NewStatus)).Inc()
	}

	logger.Log.Info("playlist updated",
		zap.String("playlist_id", merged.PlaylistID),
		zap.Int("version", entry.Version),
		zap.Int("added", len(entry.VideosAdded)),
		zap.Int("removed", len(entry.VideosRemoved)),
		zap.Int("status_changes", len(entry.StatusChanges)))

	// Publishing is best effort: the state and ledger are already durable.
	if s.publisher != nil {
		if err := s.publisher.PublishPlaylistChange(ctx, merged.PlaylistID, entry); err != nil {
			logger.Log.Error("failed to publish change event",
				zap.String("playlist_id", merged.PlaylistID),
				zap.Error(err))
		}
	}

	return result, nil
}

// GetPlaylist returns the stored state for a playlist.
func (s *TrackerService) GetPlaylist(ctx context.Context, playlistID string) (*models.PlaylistRecord, error) {
	if playlistID == "" {
		return nil, NewValidationError("playlist_id", "must not be empty")
	}
	return s.store.LoadPlaylist(ctx, playlistID)
}

// ListPlaylists returns summaries of every tracked playlist.
func (s *TrackerService) ListPlaylists(ctx context.Context) ([]*models.PlaylistSummary, error) {
	return s.store.ListPlaylists(ctx)
}

// GetHistory returns the playlist's version ledger in append order.
func (s *TrackerService) GetHistory(ctx context.Context, playlistID string) ([]*models.VersionEntry, error) {
	if playlistID == "" {
		return nil, NewValidationError("playlist_id", "must not be empty")
	}
	return s.store.GetVersions(ctx, playlistID)
}

// ListVideos returns the playlist's videos matching the filter, ordered by
// playlist index with placeholder and departed entries last.
func (s *TrackerService) ListVideos(ctx context.Context, playlistID string, filter VideoFilter) ([]*models.VideoRecord, error) {
	record, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	videos := make([]*models.VideoRecord, 0, len(record.Videos))
	for _, v := range record.Videos {
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		if filter.Downloaded != nil && v.Downloaded() != *filter.Downloaded {
			continue
		}
		videos = append(videos, v)
	}
	sortVideos(videos)
	return videos, nil
}

// DeletePlaylist removes a playlist's state and version ledger.
func (s *TrackerService) DeletePlaylist(ctx context.Context, playlistID string) error {
	if playlistID == "" {
		return NewValidationError("playlist_id", "must not be empty")
	}

	lock := s.playlistLock(playlistID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	logger.Log.Info("playlist deleted", zap.String("playlist_id", playlistID))
	return nil
}

// sortVideos orders by playlist index, then identifier for records sharing
// an index (departed videos keep their last known position).
func sortVideos(videos []*models.VideoRecord) {
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].PlaylistIndex != videos[j].PlaylistIndex {
			return videos[i].PlaylistIndex < videos[j].PlaylistIndex
		}
		return videos[i].VideoID < videos[j].VideoID
	})
}

// String implements fmt.Stringer for logging.
func (r *RefreshResult) String() string {
	if r.Version == nil {
		return fmt.Sprintf("%s: unchanged (%d videos)", r.PlaylistID, r.VideoCount)
	}
	return fmt.Sprintf("%s: version %d (%d videos)", r.PlaylistID, r.Version.Version, r.VideoCount)
}
