// Package download runs video downloads for tracked playlists through a
// bounded worker pool.
package download

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/fetch"
	"github.com/ytvault/playlist-tracker-go/internal/metrics"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/internal/reconcile"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// Summary reports the outcome of one playlist download pass.
type Summary struct {
	Attempted int
	Completed int
	Failed    int
	Skipped   int
}

// Manager downloads the LIVE, not-yet-downloaded videos of a playlist.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Manager struct {
	store       store.Store
	binary      string
	dir         string
	quality     string
	cookiesFile string
	workers     int
}

// NewManager creates a download manager. workers caps concurrent downloads;
// values below 1 are raised to 1.
func NewManager(st store.Store, binary, dir, quality, cookiesFile string, workers int) *Manager {
	if binary == "" {
		binary = "yt-dlp"
	}
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		store:       st,
		binary:      binary,
		dir:         dir,
		quality:     quality,
		cookiesFile: cookiesFile,
		workers:     workers,
	}
}

type downloadResult struct {
	videoID string
	path    string
	err     error
}

// DownloadPlaylist downloads every candidate video of the playlist and
// records the per-video outcome in the store.
//
// Candidates are LIVE videos without a completed download and with a real
// identifier; placeholder identifiers cannot name a watchable URL. Videos
// already marked DOWNLOADING are retried: a stale in-progress marker only
// means an earlier pass died mid-download, and the tool resumes partial
// files.
func (m *Manager) DownloadPlaylist(ctx context.Context, playlistID string) (*Summary, error) {
	record, err := m.store.LoadPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	targetDir := filepath.Join(m.dir, playlistID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	summary := &Summary{}
	var candidates []*models.VideoRecord
	for _, v := range record.Videos {
		if v.Status != models.StatusLive || v.Downloaded() || reconcile.IsPlaceholderID(v.VideoID) {
			summary.Skipped++
			metrics.DownloadsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		candidates = append(candidates, v)
	}
	summary.Attempted = len(candidates)

	if len(candidates) == 0 {
		return summary, nil
	}

	logger.Log.Info("starting downloads",
		zap.String("playlist_id", playlistID),
		zap.Int("videos", len(candidates)),
		zap.Int("workers", m.workers))

	var mu sync.Mutex
	results := make([]downloadResult, 0, len(candidates))

	p := pool.New().WithMaxGoroutines(m.workers)
	for _, v := range candidates {
		videoID := v.VideoID
		p.Go(func() {
			path, err := m.downloadOne(ctx, videoID, targetDir)
			mu.Lock()
			results = append(results, downloadResult{videoID: videoID, path: path, err: err})
			mu.Unlock()
		})
	}
	p.Wait()

	// Re-read before writing: a refresh pass may have landed while the
	// downloads ran, and only the download fields belong to this pass.
	record, err = m.store.LoadPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	audioOnly := strings.EqualFold(m.quality, "audio")
	for _, r := range results {
		v, ok := record.Videos[r.videoID]
		if !ok {
			continue
		}
		if r.err != nil {
			v.DownloadStatus = models.DownloadFailed
			m.classifyFailure(v, r.err, now)
			summary.Failed++
			metrics.DownloadsTotal.WithLabelValues("failed").Inc()
			logger.Log.Warn("download failed",
				zap.String("video_id", r.videoID),
				zap.Error(r.err))
		} else {
			v.DownloadStatus = models.DownloadCompleted
			if r.path != "" {
				if audioOnly {
					v.AudioPath = models.Ptr(r.path)
				} else {
					v.VideoPath = models.Ptr(r.path)
				}
			}
			summary.Completed++
			metrics.DownloadsTotal.WithLabelValues("completed").Inc()
		}
		v.LastModified = now
	}

	if err := m.store.SavePlaylist(ctx, record); err != nil {
		return nil, fmt.Errorf("record download results: %w", err)
	}

	logger.Log.Info("downloads finished",
		zap.String("playlist_id", playlistID),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// classifyFailure inspects the tool's error text for a definite availability
// verdict and records the transition. UNAVAILABLE is the classifier's
// catch-all for transient tool errors, so only confident verdicts touch the
// status.
func (m *Manager) classifyFailure(v *models.VideoRecord, err error, now time.Time) {
	status := fetch.ClassifyErrorText(err.Error())
	if status == models.StatusUnavailable || status == v.Status {
		return
	}
	v.StatusHistory = append(v.StatusHistory, models.StatusChange{
		Timestamp: now,
		OldStatus: v.Status,
		NewStatus: status,
		Note:      "discovered during download attempt",
	})
	v.Status = status
	logger.Log.Info("availability discovered during download",
		zap.String("video_id", v.VideoID),
		zap.String("status", string(status)))
}

// downloadOne runs the tool for a single video and returns the final file
// path it reports.
func (m *Manager) downloadOne(ctx context.Context, videoID, targetDir string) (string, error) {
	args := []string{
		"--format", formatSelector(m.quality),
		"--continue",
		"--no-overwrites",
		"--no-warnings",
		"--print", "after_move:filepath",
		"--no-simulate",
		"--output", filepath.Join(targetDir, "%(title)s [%(id)s].%(ext)s"),
	}
	if m.cookiesFile != "" {
		args = append(args, "--cookies", m.cookiesFile)
	}
	args = append(args, "https://www.youtube.com/watch?v="+videoID)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("download %s: %s", videoID, firstLine(msg))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// formatSelector maps a quality label to the tool's format expression.
func formatSelector(quality string) string {
	switch strings.ToLower(quality) {
	case "", "best":
		return "bestvideo+bestaudio/best"
	case "audio":
		return "bestaudio/best"
	default:
		height := strings.TrimSuffix(strings.ToLower(quality), "p")
		return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best[height<=%s]", height, height)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
