package reconcile

import (
	"reflect"
	"testing"
	"time"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

var (
	t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	t1 = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
)

func liveEntry(id, title string) models.FetchEntry {
	return models.FetchEntry{
		VideoID: models.Ptr(id),
		Title:   models.Ptr(title),
	}
}

func snapshot(entries ...models.FetchEntry) *models.FetchSnapshot {
	return &models.FetchSnapshot{
		PlaylistID: "PLtest",
		Title:      "Test Playlist",
		Channel:    "Test Channel",
		Entries:    entries,
	}
}

func TestReconcileFirstFetch(t *testing.T) {
	snap := snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	)

	merged, entry := Reconcile(nil, snap, t0)

	if merged.PlaylistID != "PLtest" {
		t.Errorf("PlaylistID = %q, want PLtest", merged.PlaylistID)
	}
	if merged.Title != "Test Playlist" {
		t.Errorf("Title = %q, want Test Playlist", merged.Title)
	}
	if !merged.Created.Equal(t0) || !merged.LastUpdated.Equal(t0) {
		t.Errorf("Created/LastUpdated = %v/%v, want %v", merged.Created, merged.LastUpdated, t0)
	}
	if len(merged.Videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(merged.Videos))
	}

	if entry == nil {
		t.Fatal("expected a version entry for the first fetch")
	}
	wantAdded := []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}
	if !reflect.DeepEqual(entry.VideosAdded, wantAdded) {
		t.Errorf("VideosAdded = %v, want %v", entry.VideosAdded, wantAdded)
	}
	if len(entry.VideosRemoved) != 0 || len(entry.StatusChanges) != 0 {
		t.Errorf("unexpected removals or status changes: %v %v", entry.VideosRemoved, entry.StatusChanges)
	}

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Status != models.StatusLive {
		t.Errorf("Status = %s, want LIVE", rec.Status)
	}
	if rec.PlaylistIndex != 1 {
		t.Errorf("PlaylistIndex = %d, want 1", rec.PlaylistIndex)
	}
	if rec.DownloadStatus != models.DownloadNotStarted {
		t.Errorf("DownloadStatus = %s, want NOT_DOWNLOADED", rec.DownloadStatus)
	}
	if len(rec.StatusHistory) != 1 || rec.StatusHistory[0].NewStatus != models.StatusLive {
		t.Errorf("StatusHistory = %+v, want one first-observed LIVE entry", rec.StatusHistory)
	}
	if rec.WebpageURL != "https://www.youtube.com/watch?v=aaaaaaaaaaa" {
		t.Errorf("WebpageURL = %q", rec.WebpageURL)
	}
}

func TestReconcileAddsNewVideo(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)

	merged, entry := Reconcile(base, snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	), t1)

	if entry == nil {
		t.Fatal("expected a version entry")
	}
	if !reflect.DeepEqual(entry.VideosAdded, []string{"bbbbbbbbbbb"}) {
		t.Errorf("VideosAdded = %v, want [bbbbbbbbbbb]", entry.VideosAdded)
	}
	if !merged.Videos["bbbbbbbbbbb"].FirstSeen.Equal(t1) {
		t.Errorf("FirstSeen = %v, want %v", merged.Videos["bbbbbbbbbbb"].FirstSeen, t1)
	}
	if !merged.Videos["aaaaaaaaaaa"].FirstSeen.Equal(t0) {
		t.Errorf("existing FirstSeen moved to %v", merged.Videos["aaaaaaaaaaa"].FirstSeen)
	}
}

func TestReconcileAbsentLiveVideoBecomesDeleted(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	), t0)

	merged, entry := Reconcile(base, snapshot(liveEntry("aaaaaaaaaaa", "First")), t1)

	// The record stays in the map; only its status changes.
	rec, ok := merged.Videos["bbbbbbbbbbb"]
	if !ok {
		t.Fatal("absent video was dropped from the record map")
	}
	if rec.Status != models.StatusDeleted {
		t.Errorf("Status = %s, want DELETED", rec.Status)
	}
	last := rec.StatusHistory[len(rec.StatusHistory)-1]
	if last.OldStatus != models.StatusLive || last.NewStatus != models.StatusDeleted {
		t.Errorf("last history entry = %+v, want LIVE->DELETED", last)
	}
	if !rec.LastChecked.Equal(t0) {
		t.Errorf("LastChecked = %v, want unchanged %v", rec.LastChecked, t0)
	}

	if entry == nil {
		t.Fatal("expected a version entry")
	}
	if !reflect.DeepEqual(entry.VideosRemoved, []string{"bbbbbbbbbbb"}) {
		t.Errorf("VideosRemoved = %v, want [bbbbbbbbbbb]", entry.VideosRemoved)
	}
	if len(entry.StatusChanges) != 1 || entry.StatusChanges[0].NewStatus != models.StatusDeleted {
		t.Errorf("StatusChanges = %+v", entry.StatusChanges)
	}
}

func TestReconcileDoesNotReflagNonLiveVideos(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	), t0)
	afterRemoval, _ := Reconcile(base, snapshot(liveEntry("aaaaaaaaaaa", "First")), t1)

	merged, entry := Reconcile(afterRemoval, snapshot(liveEntry("aaaaaaaaaaa", "First")), t2)

	if entry != nil {
		t.Errorf("expected no version entry, got %+v", entry)
	}
	rec := merged.Videos["bbbbbbbbbbb"]
	if len(rec.StatusHistory) != 2 {
		t.Errorf("StatusHistory grew to %d entries, want 2", len(rec.StatusHistory))
	}
}

func TestReconcileStatusTransitionToPrivate(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)

	privateEntry := liveEntry("aaaaaaaaaaa", "First")
	privateEntry.Status = models.Ptr(models.StatusPrivate)
	merged, entry := Reconcile(base, snapshot(privateEntry), t1)

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Status != models.StatusPrivate {
		t.Errorf("Status = %s, want PRIVATE", rec.Status)
	}
	last := rec.StatusHistory[len(rec.StatusHistory)-1]
	if last.OldStatus != models.StatusLive || last.NewStatus != models.StatusPrivate {
		t.Errorf("last history entry = %+v, want LIVE->PRIVATE", last)
	}
	if !rec.LastChecked.Equal(t1) {
		t.Errorf("LastChecked = %v, want %v for a re-observed video", rec.LastChecked, t1)
	}

	if entry == nil {
		t.Fatal("expected a version entry")
	}
	want := models.VideoStatusChange{VideoID: "aaaaaaaaaaa", OldStatus: models.StatusLive, NewStatus: models.StatusPrivate}
	if len(entry.StatusChanges) != 1 || entry.StatusChanges[0] != want {
		t.Errorf("StatusChanges = %+v, want [%+v]", entry.StatusChanges, want)
	}
}

func TestReconcilePrivateVideoReturningLive(t *testing.T) {
	privateEntry := liveEntry("aaaaaaaaaaa", "First")
	privateEntry.Status = models.Ptr(models.StatusPrivate)
	base, _ := Reconcile(nil, snapshot(privateEntry), t0)

	reappeared := liveEntry("aaaaaaaaaaa", "First")
	reappeared.Status = models.Ptr(models.StatusLive)
	merged, entry := Reconcile(base, snapshot(reappeared), t1)

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Status != models.StatusLive {
		t.Errorf("Status = %s, want LIVE", rec.Status)
	}
	last := rec.StatusHistory[len(rec.StatusHistory)-1]
	if last.OldStatus != models.StatusPrivate || last.NewStatus != models.StatusLive {
		t.Errorf("last history entry = %+v, want PRIVATE->LIVE", last)
	}
	if entry == nil {
		t.Fatal("expected a version entry")
	}
	want := models.VideoStatusChange{VideoID: "aaaaaaaaaaa", OldStatus: models.StatusPrivate, NewStatus: models.StatusLive}
	if len(entry.StatusChanges) != 1 || entry.StatusChanges[0] != want {
		t.Errorf("StatusChanges = %+v, want [%+v]", entry.StatusChanges, want)
	}
}

func TestReconcileFirstSightingAlreadyPrivate(t *testing.T) {
	entry := liveEntry("aaaaaaaaaaa", "Hidden")
	entry.Status = models.Ptr(models.StatusPrivate)

	merged, version := Reconcile(nil, snapshot(entry), t0)

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Status != models.StatusPrivate {
		t.Errorf("Status = %s, want PRIVATE", rec.Status)
	}
	// First sighting is an addition, not a status change.
	if len(version.StatusChanges) != 0 {
		t.Errorf("StatusChanges = %+v, want none", version.StatusChanges)
	}
	if len(rec.StatusHistory) != 1 || rec.StatusHistory[0].NewStatus != models.StatusPrivate {
		t.Errorf("StatusHistory = %+v", rec.StatusHistory)
	}
}

func TestReconcileNilFieldsDoNotBlankMetadata(t *testing.T) {
	detailed := models.FetchEntry{
		VideoID:     models.Ptr("aaaaaaaaaaa"),
		Title:       models.Ptr("Full Title"),
		Description: models.Ptr("A description"),
		Duration:    models.Ptr(212),
		ViewCount:   models.Ptr(int64(1000)),
	}
	base, _ := Reconcile(nil, snapshot(detailed), t0)

	// A later flat fetch returns only the id and title.
	flat := models.FetchEntry{
		VideoID: models.Ptr("aaaaaaaaaaa"),
		Title:   models.Ptr("Full Title"),
	}
	merged, entry := Reconcile(base, snapshot(flat), t1)

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Description == nil || *rec.Description != "A description" {
		t.Errorf("Description = %v, want preserved", rec.Description)
	}
	if rec.Duration == nil || *rec.Duration != 212 {
		t.Errorf("Duration = %v, want preserved", rec.Duration)
	}
	if rec.ViewCount == nil || *rec.ViewCount != 1000 {
		t.Errorf("ViewCount = %v, want preserved", rec.ViewCount)
	}
	if entry != nil {
		t.Errorf("expected no version entry for an unchanged pass, got %+v", entry)
	}
}

func TestReconcileDetailedFetchEnrichesFlatRecord(t *testing.T) {
	flat := models.FetchEntry{
		VideoID: models.Ptr("aaaaaaaaaaa"),
		Title:   models.Ptr("Short Title"),
	}
	base, _ := Reconcile(nil, snapshot(flat), t0)

	detailed := models.FetchEntry{
		VideoID:     models.Ptr("aaaaaaaaaaa"),
		Title:       models.Ptr("Short Title"),
		Description: models.Ptr("Now with details"),
		UploadDate:  models.Ptr("2025-11-30"),
		ViewCount:   models.Ptr(int64(42)),
	}
	merged, entry := Reconcile(base, snapshot(detailed), t1)

	rec := merged.Videos["aaaaaaaaaaa"]
	if rec.Description == nil || *rec.Description != "Now with details" {
		t.Errorf("Description = %v", rec.Description)
	}
	if !rec.LastModified.Equal(t1) {
		t.Errorf("LastModified = %v, want %v after enrichment", rec.LastModified, t1)
	}
	// Metadata enrichment alone does not produce a version entry.
	if entry != nil {
		t.Errorf("expected no version entry, got %+v", entry)
	}
}

func TestReconcileIdempotentPass(t *testing.T) {
	snap := snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	)
	base, _ := Reconcile(nil, snap, t0)

	merged, entry := Reconcile(base, snap, t0)

	if entry != nil {
		t.Fatalf("expected no version entry, got %+v", entry)
	}
	if !reflect.DeepEqual(base, merged) {
		t.Errorf("repeated pass with identical input changed the record:\nbefore: %+v\nafter:  %+v", base, merged)
	}
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)
	before := base.Clone()

	Reconcile(base, snapshot(liveEntry("bbbbbbbbbbb", "Second")), t1)

	if !reflect.DeepEqual(before, base) {
		t.Error("input record was mutated")
	}
}

func TestReconcilePreservesDownloadAndArchiveState(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)
	rec := base.Videos["aaaaaaaaaaa"]
	rec.DownloadStatus = models.DownloadCompleted
	rec.VideoPath = models.Ptr("/data/aaaaaaaaaaa.mp4")
	rec.ArchiveStatus = models.ArchiveArchived
	rec.ArchiveIdentifier = models.Ptr("youtube-aaaaaaaaaaa")

	// The video vanishes and the pass flags it DELETED; local bookkeeping
	// must survive.
	merged, _ := Reconcile(base, snapshot(liveEntry("bbbbbbbbbbb", "Second")), t1)

	got := merged.Videos["aaaaaaaaaaa"]
	if got.DownloadStatus != models.DownloadCompleted {
		t.Errorf("DownloadStatus = %s, want COMPLETED", got.DownloadStatus)
	}
	if got.VideoPath == nil || *got.VideoPath != "/data/aaaaaaaaaaa.mp4" {
		t.Errorf("VideoPath = %v, want preserved", got.VideoPath)
	}
	if got.ArchiveStatus != models.ArchiveArchived {
		t.Errorf("ArchiveStatus = %s, want ARCHIVED", got.ArchiveStatus)
	}
	if got.ArchiveIdentifier == nil || *got.ArchiveIdentifier != "youtube-aaaaaaaaaaa" {
		t.Errorf("ArchiveIdentifier = %v, want preserved", got.ArchiveIdentifier)
	}
}

func TestReconcileUpdatesPlaylistIndex(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	), t0)

	merged, entry := Reconcile(base, snapshot(
		liveEntry("bbbbbbbbbbb", "Second"),
		liveEntry("aaaaaaaaaaa", "First"),
	), t1)

	if merged.Videos["bbbbbbbbbbb"].PlaylistIndex != 1 {
		t.Errorf("index of bbbbbbbbbbb = %d, want 1", merged.Videos["bbbbbbbbbbb"].PlaylistIndex)
	}
	if merged.Videos["aaaaaaaaaaa"].PlaylistIndex != 2 {
		t.Errorf("index of aaaaaaaaaaa = %d, want 2", merged.Videos["aaaaaaaaaaa"].PlaylistIndex)
	}
	// Reordering alone is not a recorded change.
	if entry != nil {
		t.Errorf("expected no version entry, got %+v", entry)
	}
}

func TestReconcileIdentifierRecovery(t *testing.T) {
	entries := []models.FetchEntry{
		{URL: models.Ptr("https://www.youtube.com/watch?v=ccccccccccc&list=PLtest")},
		{Title: models.Ptr("completely anonymous")},
	}

	merged, version := Reconcile(nil, snapshot(entries...), t0)

	if _, ok := merged.Videos["ccccccccccc"]; !ok {
		t.Errorf("id was not recovered from the watch URL; videos = %v", keys(merged.Videos))
	}

	placeholder := PlaceholderID(2)
	rec, ok := merged.Videos[placeholder]
	if !ok {
		t.Fatalf("expected placeholder record %q; videos = %v", placeholder, keys(merged.Videos))
	}
	if rec.Status != models.StatusUnavailable {
		t.Errorf("placeholder Status = %s, want UNAVAILABLE", rec.Status)
	}
	if rec.WebpageURL != "" {
		t.Errorf("placeholder WebpageURL = %q, want empty", rec.WebpageURL)
	}
	if len(version.VideosAdded) != 2 {
		t.Errorf("VideosAdded = %v, want 2 entries", version.VideosAdded)
	}

	// The same snapshot yields the same placeholder again.
	again, entry := Reconcile(merged, snapshot(entries...), t0)
	if entry != nil {
		t.Errorf("expected a stable no-op, got %+v", entry)
	}
	if len(again.Videos) != 2 {
		t.Errorf("placeholder was not stable: videos = %v", keys(again.Videos))
	}
}

func TestReconcileStatusHistoryTracksCurrentStatus(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)

	privateEntry := liveEntry("aaaaaaaaaaa", "First")
	privateEntry.Status = models.Ptr(models.StatusPrivate)
	step, _ := Reconcile(base, snapshot(privateEntry), t1)
	final, _ := Reconcile(step, snapshot(liveEntry("bbbbbbbbbbb", "Other")), t2)

	for id, rec := range final.Videos {
		if len(rec.StatusHistory) == 0 {
			t.Errorf("video %s has empty status history", id)
			continue
		}
		last := rec.StatusHistory[len(rec.StatusHistory)-1]
		if last.NewStatus != rec.Status {
			t.Errorf("video %s: last history status %s != current status %s", id, last.NewStatus, rec.Status)
		}
	}
}

func TestReconcileEmptySnapshotFlagsEverything(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(
		liveEntry("aaaaaaaaaaa", "First"),
		liveEntry("bbbbbbbbbbb", "Second"),
	), t0)

	merged, entry := Reconcile(base, snapshot(), t1)

	if len(merged.Videos) != 2 {
		t.Fatalf("videos were dropped: %v", keys(merged.Videos))
	}
	if entry == nil {
		t.Fatal("expected a version entry")
	}
	wantRemoved := []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}
	if !reflect.DeepEqual(entry.VideosRemoved, wantRemoved) {
		t.Errorf("VideosRemoved = %v, want %v", entry.VideosRemoved, wantRemoved)
	}
}

func TestReconcilePlaylistMetadataRefresh(t *testing.T) {
	base, _ := Reconcile(nil, snapshot(liveEntry("aaaaaaaaaaa", "First")), t0)

	snap := snapshot(liveEntry("aaaaaaaaaaa", "First"))
	snap.Title = "Renamed Playlist"
	snap.Channel = "" // flat fetch missing the channel must not erase it
	merged, _ := Reconcile(base, snap, t1)

	if merged.Title != "Renamed Playlist" {
		t.Errorf("Title = %q, want Renamed Playlist", merged.Title)
	}
	if merged.Channel != "Test Channel" {
		t.Errorf("Channel = %q, want preserved Test Channel", merged.Channel)
	}
}

func keys(m map[string]*models.VideoRecord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
