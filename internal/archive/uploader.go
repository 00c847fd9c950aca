// Package archive uploads downloaded videos to an S3-compatible archival
// store using the archive.org naming conventions.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/metrics"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/internal/reconcile"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// Uploader pushes completed downloads to the archival store and records the
// outcome on the video record.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Uploader struct {
	store     store.Store
	client    *http.Client
	endpoint  string
	accessKey string
	secretKey string
}

// NewUploader creates an uploader against an S3-compatible endpoint.
func NewUploader(st store.Store, endpoint, accessKey, secretKey string) *Uploader {
	return &Uploader{
		store:     st,
		client:    &http.Client{Timeout: 30 * time.Minute},
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

// ItemIdentifier derives the archival item name for a video. Placeholder
// identifiers are rejected: an archival item must be addressable by the real
// video it holds.
func ItemIdentifier(videoID string) (string, error) {
	if reconcile.IsPlaceholderID(videoID) {
		return "", fmt.Errorf("video %s has no recoverable identifier", videoID)
	}
	return "youtube-" + sanitizeIdentifier(videoID), nil
}

// sanitizeIdentifier keeps the item name inside the archival store's allowed
// character set.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Summary reports the outcome of one playlist upload pass.
type Summary struct {
	Attempted int
	Archived  int
	Failed    int
}

// UploadPlaylist uploads every video of the playlist that has a completed
// download and is not yet archived. Earlier failed uploads are retried.
func (u *Uploader) UploadPlaylist(ctx context.Context, playlistID string) (*Summary, error) {
	record, err := u.store.LoadPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for id, v := range record.Videos {
		if !v.Downloaded() || uploadPath(v) == nil {
			continue
		}
		if v.ArchiveStatus != models.ArchiveNotArchived && v.ArchiveStatus != models.ArchiveFailed {
			continue
		}
		if reconcile.IsPlaceholderID(id) {
			continue
		}
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)

	summary := &Summary{Attempted: len(candidates)}
	for _, id := range candidates {
		if err := u.UploadVideo(ctx, playlistID, id); err != nil {
			summary.Failed++
			logger.Log.Warn("archive upload failed",
				zap.String("video_id", id),
				zap.Error(err))
			continue
		}
		summary.Archived++
	}
	return summary, nil
}

// uploadPath returns the file to upload: the video file, or the audio file
// for audio-only downloads.
func uploadPath(v *models.VideoRecord) *string {
	if v.VideoPath != nil {
		return v.VideoPath
	}
	return v.AudioPath
}

// UploadVideo uploads one video's downloaded file and records the outcome.
// Videos without a completed download, or already archived, are skipped.
func (u *Uploader) UploadVideo(ctx context.Context, playlistID, videoID string) error {
	record, err := u.store.LoadPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	v, ok := record.Videos[videoID]
	if !ok {
		return fmt.Errorf("video %s not tracked in playlist %s: %w", videoID, playlistID, store.ErrNotFound)
	}

	if v.ArchiveStatus == models.ArchiveArchived || v.ArchiveStatus == models.ArchiveSkipped {
		return nil
	}
	path := uploadPath(v)
	if !v.Downloaded() || path == nil {
		metrics.ArchiveUploadsTotal.WithLabelValues("skipped").Inc()
		return fmt.Errorf("video %s has no completed download to upload", videoID)
	}

	identifier, err := ItemIdentifier(videoID)
	if err != nil {
		metrics.ArchiveUploadsTotal.WithLabelValues("skipped").Inc()
		return err
	}

	now := time.Now().UTC()
	uploadErr := u.putFile(ctx, identifier, *path, v)

	// Persist the outcome either way so retries and operators can see it.
	record, loadErr := u.store.LoadPlaylist(ctx, playlistID)
	if loadErr != nil {
		return loadErr
	}
	v, ok = record.Videos[videoID]
	if !ok {
		return fmt.Errorf("video %s disappeared during upload: %w", videoID, store.ErrNotFound)
	}

	if uploadErr != nil {
		v.ArchiveStatus = models.ArchiveFailed
		v.ArchiveError = models.Ptr(uploadErr.Error())
		metrics.ArchiveUploadsTotal.WithLabelValues("failed").Inc()
	} else {
		v.ArchiveStatus = models.ArchiveArchived
		v.ArchiveIdentifier = models.Ptr(identifier)
		v.ArchiveURL = models.Ptr("https://archive.org/details/" + identifier)
		v.ArchiveDate = models.Ptr(now)
		v.ArchiveError = nil
		metrics.ArchiveUploadsTotal.WithLabelValues("archived").Inc()
	}
	v.LastModified = now

	if err := u.store.SavePlaylist(ctx, record); err != nil {
		return fmt.Errorf("record archive outcome: %w", err)
	}
	return uploadErr
}

// putFile PUTs the file into the item bucket with archival metadata headers.
func (u *Uploader) putFile(ctx context.Context, identifier, path string, v *models.VideoRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open download: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat download: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", u.endpoint, identifier, filepath.Base(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", fmt.Sprintf("LOW %s:%s", u.accessKey, u.secretKey))
	req.Header.Set("x-archive-auto-make-bucket", "1")
	req.Header.Set("x-archive-meta-mediatype", "movies")
	req.Header.Set("x-archive-meta-collection", "opensource_movies")
	req.Header.Set("x-archive-meta-originalurl", v.WebpageURL)
	if v.Title != nil {
		req.Header.Set("x-archive-meta-title", *v.Title)
	}
	if v.Channel != nil {
		req.Header.Set("x-archive-meta-creator", *v.Channel)
	}
	if v.UploadDate != nil {
		req.Header.Set("x-archive-meta-date", *v.UploadDate)
	}

	logger.Log.Info("uploading to archive",
		zap.String("identifier", identifier),
		zap.String("file", filepath.Base(path)),
		zap.Int64("bytes", info.Size()))

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", identifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload %s: unexpected status %s", identifier, resp.Status)
	}
	return nil
}
