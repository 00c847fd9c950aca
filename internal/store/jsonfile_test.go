package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

func init() {
	_ = logger.Init("error", "")
}

func testRecord(playlistID string) *models.PlaylistRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.PlaylistRecord{
		PlaylistID:  playlistID,
		Title:       "Test Playlist",
		Channel:     "Test Channel",
		Created:     now,
		LastUpdated: now,
		Videos: map[string]*models.VideoRecord{
			"dQw4w9WgXcQ": {
				VideoID:        "dQw4w9WgXcQ",
				PlaylistIndex:  1,
				Title:          models.Ptr("First Video"),
				Status:         models.StatusLive,
				StatusHistory:  []models.StatusChange{{Timestamp: now, NewStatus: models.StatusLive}},
				DownloadStatus: models.DownloadNotStarted,
				ArchiveStatus:  models.ArchiveNotArchived,
				FirstSeen:      now,
				LastChecked:    now,
				LastModified:   now,
			},
		},
	}
}

func TestJSONStoreSaveLoadRoundtrip(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	record := testRecord("PLtest001")
	if err := store.SavePlaylist(ctx, record); err != nil {
		t.Fatalf("SavePlaylist() error = %v", err)
	}

	loaded, err := store.LoadPlaylist(ctx, "PLtest001")
	if err != nil {
		t.Fatalf("LoadPlaylist() error = %v", err)
	}
	if !reflect.DeepEqual(record, loaded) {
		t.Errorf("loaded record differs from saved record:\nsaved:  %+v\nloaded: %+v", record, loaded)
	}
}

func TestJSONStoreLoadMissing(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	_, err = store.LoadPlaylist(context.Background(), "PLnope")
	if !IsNotFound(err) {
		t.Errorf("LoadPlaylist() error = %v, want ErrNotFound", err)
	}
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	playlistDir := filepath.Join(dir, "PLbroken")
	if err := os.MkdirAll(playlistDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(playlistDir, stateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.LoadPlaylist(context.Background(), "PLbroken")
	if !IsCorrupt(err) {
		t.Errorf("LoadPlaylist() error = %v, want ErrCorrupt", err)
	}
	if IsNotFound(err) {
		t.Errorf("corrupt record must not read as not-found")
	}
}

func TestJSONStoreVersionAppendAssignsNumbers(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := &models.VersionEntry{
			Timestamp:   time.Date(2026, 3, 1, 12, i, 0, 0, time.UTC),
			VideosAdded: []string{"dQw4w9WgXcQ"},
		}
		if err := store.AppendVersion(ctx, "PLtest001", entry); err != nil {
			t.Fatalf("AppendVersion() #%d error = %v", i+1, err)
		}
		if entry.Version != i+1 {
			t.Errorf("AppendVersion() #%d assigned version %d, want %d", i+1, entry.Version, i+1)
		}
	}

	entries, err := store.GetVersions(ctx, "PLtest001")
	if err != nil {
		t.Fatalf("GetVersions() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("GetVersions() returned %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Version != i+1 {
			t.Errorf("entry %d has version %d, want %d", i, e.Version, i+1)
		}
	}
}

func TestJSONStoreGetVersionsEmpty(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	entries, err := store.GetVersions(context.Background(), "PLnothing")
	if err != nil {
		t.Fatalf("GetVersions() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GetVersions() returned %d entries, want 0", len(entries))
	}
}

func TestJSONStoreListPlaylists(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"PLbbb", "PLaaa"} {
		if err := store.SavePlaylist(ctx, testRecord(id)); err != nil {
			t.Fatalf("SavePlaylist(%s) error = %v", id, err)
		}
	}

	summaries, err := store.ListPlaylists(ctx)
	if err != nil {
		t.Fatalf("ListPlaylists() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ListPlaylists() returned %d summaries, want 2", len(summaries))
	}
	if summaries[0].PlaylistID != "PLaaa" || summaries[1].PlaylistID != "PLbbb" {
		t.Errorf("summaries not sorted by playlist id: %s, %s", summaries[0].PlaylistID, summaries[1].PlaylistID)
	}
	if summaries[0].VideoCount != 1 {
		t.Errorf("VideoCount = %d, want 1", summaries[0].VideoCount)
	}
}

func TestJSONStoreDeletePlaylist(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.SavePlaylist(ctx, testRecord("PLgone")); err != nil {
		t.Fatalf("SavePlaylist() error = %v", err)
	}
	if err := store.DeletePlaylist(ctx, "PLgone"); err != nil {
		t.Fatalf("DeletePlaylist() error = %v", err)
	}
	if _, err := store.LoadPlaylist(ctx, "PLgone"); !IsNotFound(err) {
		t.Errorf("LoadPlaylist() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeletePlaylist(ctx, "PLgone"); !IsNotFound(err) {
		t.Errorf("DeletePlaylist() twice error = %v, want ErrNotFound", err)
	}
}

func TestSanitizeDirName(t *testing.T) {
	got := sanitizeDirName(`PL/ab\c:d*e?f"g<h>i|j`)
	want := "PL_ab_c_d_e_f_g_h_i_j"
	if got != want {
		t.Errorf("sanitizeDirName() = %q, want %q", got, want)
	}
}
