// Package models contains the data model for tracked playlists and the DTOs
// exposed by the HTTP API.
package models

import "time"

// VideoStatus is the observed availability of a video.
type VideoStatus string

// VideoStatus constants define the closed set of availability states.
const (
	StatusLive        VideoStatus = "LIVE"
	StatusPrivate     VideoStatus = "PRIVATE"
	StatusDeleted     VideoStatus = "DELETED"
	StatusUnavailable VideoStatus = "UNAVAILABLE"
)

// DownloadStatus is the local download state of a video.
type DownloadStatus string

// DownloadStatus constants.
const (
	DownloadNotStarted DownloadStatus = "NOT_DOWNLOADED"
	DownloadInProgress DownloadStatus = "DOWNLOADING"
	DownloadCompleted  DownloadStatus = "COMPLETED"
	DownloadFailed     DownloadStatus = "FAILED"
)

// ArchiveStatus is the archival upload state of a video.
type ArchiveStatus string

// ArchiveStatus constants. ArchiveSkipped means the item already exists in
// the remote store under someone else's upload.
const (
	ArchiveNotArchived ArchiveStatus = "NOT_ARCHIVED"
	ArchiveUploading   ArchiveStatus = "UPLOADING"
	ArchiveArchived    ArchiveStatus = "ARCHIVED"
	ArchiveFailed      ArchiveStatus = "FAILED"
	ArchiveSkipped     ArchiveStatus = "SKIPPED"
)

// StatusChange is one observed availability transition. OldStatus is empty
// for the entry recorded when a video is first seen.
type StatusChange struct {
	Timestamp time.Time   `json:"timestamp"`
	OldStatus VideoStatus `json:"old_status,omitempty"`
	NewStatus VideoStatus `json:"new_status"`
	Note      string      `json:"note,omitempty"`
}

// VideoRecord is the tracked state of one video ever observed in a playlist.
//
// Descriptive metadata fields are pointers: nil means "never fetched at a
// depth that returns this field", which is distinct from an empty value.
// Records are never removed from a playlist once created; disappearance from
// the live playlist is recorded as a status transition instead.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoRecord struct {
	VideoID       string `json:"video_id"`
	PlaylistIndex int    `json:"playlist_index"`

	Title        *string `json:"title,omitempty"`
	Channel      *string `json:"channel,omitempty"`
	Uploader     *string `json:"uploader,omitempty"`
	UploadDate   *string `json:"upload_date,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
	Description  *string `json:"description,omitempty"`
	Thumbnail    *string `json:"thumbnail,omitempty"`
	ViewCount    *int64  `json:"view_count,omitempty"`
	LikeCount    *int64  `json:"like_count,omitempty"`
	CommentCount *int64  `json:"comment_count,omitempty"`
	WebpageURL   string  `json:"webpage_url,omitempty"`

	Status        VideoStatus    `json:"status"`
	StatusHistory []StatusChange `json:"status_history"`

	DownloadStatus DownloadStatus `json:"download_status"`
	VideoPath      *string        `json:"video_path,omitempty"`
	AudioPath      *string        `json:"audio_path,omitempty"`
	CommentsPath   *string        `json:"comments_path,omitempty"`

	ArchiveStatus     ArchiveStatus `json:"archive_status"`
	ArchiveIdentifier *string       `json:"archive_identifier,omitempty"`
	ArchiveURL        *string       `json:"archive_url,omitempty"`
	ArchiveDate       *time.Time    `json:"archive_date,omitempty"`
	ArchiveError      *string       `json:"archive_error,omitempty"`

	FirstSeen    time.Time `json:"first_seen"`
	LastChecked  time.Time `json:"last_checked"`
	LastModified time.Time `json:"last_modified"`
}

// Clone returns a deep copy of the record.
func (v *VideoRecord) Clone() *VideoRecord {
	c := *v
	c.Title = cloneString(v.Title)
	c.Channel = cloneString(v.Channel)
	c.Uploader = cloneString(v.Uploader)
	c.UploadDate = cloneString(v.UploadDate)
	c.Duration = cloneInt(v.Duration)
	c.Description = cloneString(v.Description)
	c.Thumbnail = cloneString(v.Thumbnail)
	c.ViewCount = cloneInt64(v.ViewCount)
	c.LikeCount = cloneInt64(v.LikeCount)
	c.CommentCount = cloneInt64(v.CommentCount)
	c.VideoPath = cloneString(v.VideoPath)
	c.AudioPath = cloneString(v.AudioPath)
	c.CommentsPath = cloneString(v.CommentsPath)
	c.ArchiveIdentifier = cloneString(v.ArchiveIdentifier)
	c.ArchiveURL = cloneString(v.ArchiveURL)
	c.ArchiveError = cloneString(v.ArchiveError)
	if v.ArchiveDate != nil {
		d := *v.ArchiveDate
		c.ArchiveDate = &d
	}
	c.StatusHistory = make([]StatusChange, len(v.StatusHistory))
	copy(c.StatusHistory, v.StatusHistory)
	return &c
}

// Downloaded reports whether the video has a completed download.
func (v *VideoRecord) Downloaded() bool {
	return v.DownloadStatus == DownloadCompleted
}

// PlaylistRecord is the current tracked state of one playlist.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PlaylistRecord struct {
	PlaylistID  string                  `json:"playlist_id"`
	Title       string                  `json:"title"`
	Channel     string                  `json:"channel,omitempty"`
	ChannelID   string                  `json:"channel_id,omitempty"`
	Uploader    string                  `json:"uploader,omitempty"`
	Description string                  `json:"description,omitempty"`
	WebpageURL  string                  `json:"webpage_url,omitempty"`
	Created     time.Time               `json:"created"`
	LastUpdated time.Time               `json:"last_updated"`
	Videos      map[string]*VideoRecord `json:"videos"`
}

// Clone returns a deep copy of the record.
func (p *PlaylistRecord) Clone() *PlaylistRecord {
	c := *p
	c.Videos = make(map[string]*VideoRecord, len(p.Videos))
	for id, v := range p.Videos {
		c.Videos[id] = v.Clone()
	}
	return &c
}

// VideoStatusChange records one status transition attributed to a
// reconciliation pass.
type VideoStatusChange struct {
	VideoID   string      `json:"video_id"`
	OldStatus VideoStatus `json:"old_status"`
	NewStatus VideoStatus `json:"new_status"`
}

// VersionEntry is an immutable record of what one reconciliation pass
// changed. Version numbers are assigned by the ledger on append, starting
// at 1.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VersionEntry struct {
	Version       int                 `json:"version"`
	Timestamp     time.Time           `json:"timestamp"`
	VideosAdded   []string            `json:"videos_added"`
	VideosRemoved []string            `json:"videos_removed"`
	StatusChanges []VideoStatusChange `json:"status_changes"`
	Notes         string              `json:"notes,omitempty"`
}

// PlaylistSummary is the listing projection of a stored playlist.
type PlaylistSummary struct {
	PlaylistID  string    `json:"playlist_id"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel,omitempty"`
	VideoCount  int       `json:"video_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// Summarize builds the listing projection of a playlist record.
func Summarize(p *PlaylistRecord) *PlaylistSummary {
	return &PlaylistSummary{
		PlaylistID:  p.PlaylistID,
		Title:       p.Title,
		Channel:     p.Channel,
		VideoCount:  len(p.Videos),
		LastUpdated: p.LastUpdated,
	}
}

// FetchEntry is one raw video entry as returned by the metadata fetch
// collaborator. All fields are optional; absent fields stay nil so the merge
// can distinguish "not fetched at this depth" from a fetched empty value.
//
// Status carries the explicit availability hint, already classified at the
// fetch boundary; nil means the fetch reported nothing and the entry is
// presumed live.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type FetchEntry struct {
	VideoID      *string      `json:"video_id,omitempty"`
	URL          *string      `json:"url,omitempty"`
	WebpageURL   *string      `json:"webpage_url,omitempty"`
	Title        *string      `json:"title,omitempty"`
	Channel      *string      `json:"channel,omitempty"`
	Uploader     *string      `json:"uploader,omitempty"`
	UploadDate   *string      `json:"upload_date,omitempty"`
	Duration     *int         `json:"duration,omitempty"`
	Description  *string      `json:"description,omitempty"`
	Thumbnail    *string      `json:"thumbnail,omitempty"`
	ViewCount    *int64       `json:"view_count,omitempty"`
	LikeCount    *int64       `json:"like_count,omitempty"`
	CommentCount *int64       `json:"comment_count,omitempty"`
	Status       *VideoStatus `json:"status,omitempty"`
}

// FetchSnapshot is one complete fetched view of a playlist: its descriptive
// metadata plus an ordered sequence of entries.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type FetchSnapshot struct {
	PlaylistID  string       `json:"playlist_id"`
	Title       string       `json:"title"`
	Channel     string       `json:"channel,omitempty"`
	ChannelID   string       `json:"channel_id,omitempty"`
	Uploader    string       `json:"uploader,omitempty"`
	Description string       `json:"description,omitempty"`
	WebpageURL  string       `json:"webpage_url,omitempty"`
	Entries     []FetchEntry `json:"entries"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Ptr returns a pointer to v. Convenience for building FetchEntry values.
func Ptr[T any](v T) *T {
	return &v
}
