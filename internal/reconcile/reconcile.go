// Package reconcile merges freshly fetched playlist snapshots into
// previously persisted playlist state.
//
// Reconcile is a pure function: it performs no I/O, never fails on malformed
// input, and leaves its arguments untouched. Durability and per-playlist
// serialization are the caller's concern.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

// Reconcile merges a fetched snapshot into the existing playlist record and
// reports what changed.
//
// existing may be nil for the first-ever fetch. The returned record is a new
// value; existing is never mutated. The second return is nil when the pass
// observed no additions, removals, or status transitions.
//
// Merge rules:
//   - a record, once present, is never removed; videos absent from the
//     snapshot transition LIVE -> DELETED (absence gives no more specific
//     reason) and already non-LIVE records are left alone
//   - nil fields on a fresh entry mean "not fetched at this depth" and never
//     blank out known metadata
//   - download and archive bookkeeping, first_seen, and status_history are
//     carried forward untouched except for history appends on transitions
func Reconcile(existing *models.PlaylistRecord, snap *models.FetchSnapshot, now time.Time) (*models.PlaylistRecord, *models.VersionEntry) {
	var merged *models.PlaylistRecord
	if existing != nil {
		merged = existing.Clone()
	} else {
		merged = &models.PlaylistRecord{
			PlaylistID: snap.PlaylistID,
			Created:    now,
			Videos:     make(map[string]*models.VideoRecord),
		}
	}
	applyPlaylistMetadata(merged, snap)
	merged.LastUpdated = now

	var added []string
	var changes []models.VideoStatusChange
	seen := make(map[string]bool, len(snap.Entries))

	for i, entry := range snap.Entries {
		index := i + 1
		id, resolved := ResolveVideoID(entry, index)
		seen[id] = true

		status := models.StatusLive
		if !resolved {
			status = models.StatusUnavailable
		}
		if entry.Status != nil {
			status = *entry.Status
		}

		rec, ok := merged.Videos[id]
		if !ok {
			merged.Videos[id] = newVideoRecord(id, index, entry, status, now)
			added = append(added, id)
			continue
		}

		if mergeDescriptive(rec, entry) {
			rec.LastModified = now
		}
		rec.PlaylistIndex = index
		if rec.Status != status {
			changes = append(changes, models.VideoStatusChange{
				VideoID:   id,
				OldStatus: rec.Status,
				NewStatus: status,
			})
			rec.StatusHistory = append(rec.StatusHistory, models.StatusChange{
				Timestamp: now,
				OldStatus: rec.Status,
				NewStatus: status,
				Note:      "status observed during refresh",
			})
			rec.Status = status
			rec.LastModified = now
		}
		rec.LastChecked = now
	}

	// Records absent from the snapshot were not re-observed; only infer a
	// removal for ones still marked LIVE.
	var removed []string
	for id, rec := range merged.Videos {
		if seen[id] || rec.Status != models.StatusLive {
			continue
		}
		removed = append(removed, id)
	}
	sort.Strings(removed)
	for _, id := range removed {
		rec := merged.Videos[id]
		changes = append(changes, models.VideoStatusChange{
			VideoID:   id,
			OldStatus: models.StatusLive,
			NewStatus: models.StatusDeleted,
		})
		rec.StatusHistory = append(rec.StatusHistory, models.StatusChange{
			Timestamp: now,
			OldStatus: models.StatusLive,
			NewStatus: models.StatusDeleted,
			Note:      "no longer present in playlist",
		})
		rec.Status = models.StatusDeleted
		rec.LastModified = now
	}

	if len(added) == 0 && len(removed) == 0 && len(changes) == 0 {
		return merged, nil
	}

	entry := &models.VersionEntry{
		Timestamp:     now,
		VideosAdded:   added,
		VideosRemoved: removed,
		StatusChanges: changes,
		Notes: fmt.Sprintf("Playlist update: %d added, %d removed, %d status changed",
			len(added), len(removed), len(changes)),
	}
	return merged, entry
}

// applyPlaylistMetadata overwrites playlist-level descriptive fields with the
// latest fetch. Empty snapshot fields are skipped; a fast fetch does not
// always return all of them.
func applyPlaylistMetadata(p *models.PlaylistRecord, snap *models.FetchSnapshot) {
	if snap.Title != "" {
		p.Title = snap.Title
	}
	if snap.Channel != "" {
		p.Channel = snap.Channel
	}
	if snap.ChannelID != "" {
		p.ChannelID = snap.ChannelID
	}
	if snap.Uploader != "" {
		p.Uploader = snap.Uploader
	}
	if snap.Description != "" {
		p.Description = snap.Description
	}
	if snap.WebpageURL != "" {
		p.WebpageURL = snap.WebpageURL
	}
}

func newVideoRecord(id string, index int, entry models.FetchEntry, status models.VideoStatus, now time.Time) *models.VideoRecord {
	rec := &models.VideoRecord{
		VideoID:        id,
		PlaylistIndex:  index,
		Status:         status,
		DownloadStatus: models.DownloadNotStarted,
		ArchiveStatus:  models.ArchiveNotArchived,
		FirstSeen:      now,
		LastChecked:    now,
		LastModified:   now,
		StatusHistory: []models.StatusChange{{
			Timestamp: now,
			NewStatus: status,
			Note:      "first observed",
		}},
	}
	mergeDescriptive(rec, entry)
	if rec.WebpageURL == "" && !IsPlaceholderID(id) {
		rec.WebpageURL = "https://www.youtube.com/watch?v=" + id
	}
	return rec
}

// mergeDescriptive copies every non-nil descriptive field from the entry
// onto the record and reports whether anything changed.
func mergeDescriptive(rec *models.VideoRecord, entry models.FetchEntry) bool {
	changed := false
	changed = setString(&rec.Title, entry.Title) || changed
	changed = setString(&rec.Channel, entry.Channel) || changed
	changed = setString(&rec.Uploader, entry.Uploader) || changed
	changed = setString(&rec.UploadDate, entry.UploadDate) || changed
	changed = setInt(&rec.Duration, entry.Duration) || changed
	changed = setString(&rec.Description, entry.Description) || changed
	changed = setString(&rec.Thumbnail, entry.Thumbnail) || changed
	changed = setInt64(&rec.ViewCount, entry.ViewCount) || changed
	changed = setInt64(&rec.LikeCount, entry.LikeCount) || changed
	changed = setInt64(&rec.CommentCount, entry.CommentCount) || changed
	if entry.WebpageURL != nil && *entry.WebpageURL != "" && rec.WebpageURL != *entry.WebpageURL {
		rec.WebpageURL = *entry.WebpageURL
		changed = true
	}
	return changed
}

func setString(dst **string, src *string) bool {
	if src == nil || (*dst != nil && **dst == *src) {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func setInt(dst **int, src *int) bool {
	if src == nil || (*dst != nil && **dst == *src) {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func setInt64(dst **int64, src *int64) bool {
	if src == nil || (*dst != nil && **dst == *src) {
		return false
	}
	v := *src
	*dst = &v
	return true
}
