// Package fetch wraps the external metadata-extraction tool.
//
// The tracker core only consumes the snapshot shape produced here; network
// behavior, rate limits, and retries are the tool's own concern.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
	"go.uber.org/zap"
)

// Depth selects how much per-entry metadata a fetch returns.
type Depth int

// Fetch depths. DepthFast returns the flat listing (identifiers, titles,
// little else) quickly; DepthDetailed resolves every entry and is slow on
// large playlists.
const (
	DepthFast Depth = iota
	DepthDetailed
)

// Fetcher returns a snapshot of a playlist's current entries.
type Fetcher interface {
	FetchPlaylist(ctx context.Context, playlistURL string, depth Depth) (*models.FetchSnapshot, error)
}

// YtdlpFetcher implements Fetcher by running yt-dlp as a subprocess.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YtdlpFetcher struct {
	Binary      string
	Timeout     time.Duration
	CookiesFile string
}

// NewYtdlpFetcher creates a fetcher with the given binary path and timeout.
// Empty values fall back to "yt-dlp" and 10 minutes.
func NewYtdlpFetcher(binary string, timeout time.Duration, cookiesFile string) *YtdlpFetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &YtdlpFetcher{Binary: binary, Timeout: timeout, CookiesFile: cookiesFile}
}

// FetchPlaylist runs the tool and parses its single-JSON playlist dump.
func (f *YtdlpFetcher) FetchPlaylist(ctx context.Context, playlistURL string, depth Depth) (*models.FetchSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	args := []string{"--dump-single-json", "--skip-download", "--ignore-errors", "--no-warnings"}
	if depth == DepthFast {
		args = append(args, "--flat-playlist")
	}
	if f.CookiesFile != "" {
		args = append(args, "--cookies", f.CookiesFile)
	}
	args = append(args, playlistURL)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Log.Debug("running metadata fetch",
		zap.String("url", playlistURL),
		zap.Bool("detailed", depth == DepthDetailed),
	)

	if err := cmd.Run(); err != nil && stdout.Len() == 0 {
		// With --ignore-errors the tool still emits the playlist dump on
		// partial failures; only a silent exit is fatal.
		return nil, fmt.Errorf("run %s: %w: %s", f.Binary, err, firstLine(stderr.String()))
	}

	snap, err := ParsePlaylistDump(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse playlist dump: %w", err)
	}
	return snap, nil
}

// rawPlaylist mirrors the fields of the tool's playlist dump we consume.
type rawPlaylist struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Channel     string     `json:"channel"`
	ChannelID   string     `json:"channel_id"`
	Uploader    string     `json:"uploader"`
	UploaderID  string     `json:"uploader_id"`
	WebpageURL  string     `json:"webpage_url"`
	Entries     []rawEntry `json:"entries"`
}

type rawEntry struct {
	ID           string   `json:"id"`
	Title        *string  `json:"title"`
	Channel      *string  `json:"channel"`
	Uploader     *string  `json:"uploader"`
	UploadDate   *string  `json:"upload_date"`
	Duration     *float64 `json:"duration"`
	Description  *string  `json:"description"`
	Thumbnail    *string  `json:"thumbnail"`
	ViewCount    *int64   `json:"view_count"`
	LikeCount    *int64   `json:"like_count"`
	CommentCount *int64   `json:"comment_count"`
	URL          *string  `json:"url"`
	WebpageURL   *string  `json:"webpage_url"`
	Availability *string  `json:"availability"`
	IsPrivate    bool     `json:"is_private"`
}

// ParsePlaylistDump converts the tool's JSON output into a snapshot. Null
// entries (slots the tool could not resolve at all) are kept as empty
// FetchEntry values so playlist positions stay accounted for.
func ParsePlaylistDump(data []byte) (*models.FetchSnapshot, error) {
	var raw rawPlaylist
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("playlist dump has no id")
	}

	snap := &models.FetchSnapshot{
		PlaylistID:  raw.ID,
		Title:       raw.Title,
		Channel:     firstNonEmpty(raw.Channel, raw.Uploader),
		ChannelID:   firstNonEmpty(raw.ChannelID, raw.UploaderID),
		Uploader:    raw.Uploader,
		Description: raw.Description,
		WebpageURL:  raw.WebpageURL,
		Entries:     make([]models.FetchEntry, 0, len(raw.Entries)),
	}

	for _, e := range raw.Entries {
		snap.Entries = append(snap.Entries, convertEntry(e))
	}
	return snap, nil
}

func convertEntry(e rawEntry) models.FetchEntry {
	entry := models.FetchEntry{
		Title:        e.Title,
		Channel:      e.Channel,
		Uploader:     e.Uploader,
		Description:  e.Description,
		Thumbnail:    e.Thumbnail,
		ViewCount:    e.ViewCount,
		LikeCount:    e.LikeCount,
		CommentCount: e.CommentCount,
		URL:          e.URL,
		WebpageURL:   e.WebpageURL,
	}
	if e.ID != "" {
		entry.VideoID = models.Ptr(e.ID)
	}
	if e.UploadDate != nil {
		entry.UploadDate = models.Ptr(formatUploadDate(*e.UploadDate))
	}
	if e.Duration != nil {
		entry.Duration = models.Ptr(int(*e.Duration))
	}
	if e.IsPrivate {
		entry.Status = models.Ptr(models.StatusPrivate)
	} else if e.Availability != nil {
		entry.Status = models.Ptr(ClassifyAvailability(*e.Availability))
	}
	return entry
}

// formatUploadDate converts the tool's YYYYMMDD form to YYYY-MM-DD.
func formatUploadDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
