package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

const (
	stateFileName    = "current_state.json"
	versionsFileName = "version_history.json"
)

// JSONStore keeps one directory per playlist under a base directory, with a
// current-state file and a version-history file in each. All writes go
// through a write-temp, fsync, rename sequence so a crash never leaves a
// partially written file behind.
type JSONStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewJSONStore creates the base directory if needed and returns a store
// rooted there.
func NewJSONStore(baseDir string) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	logger.Log.Info("json store initialized", zap.String("dir", baseDir))
	return &JSONStore{baseDir: baseDir}, nil
}

func (s *JSONStore) playlistDir(playlistID string) string {
	return filepath.Join(s.baseDir, sanitizeDirName(playlistID))
}

func (s *JSONStore) LoadPlaylist(_ context.Context, playlistID string) (*models.PlaylistRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.playlistDir(playlistID), stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load playlist %s: %w", playlistID, ErrNotFound)
		}
		return nil, fmt.Errorf("load playlist %s: %w", playlistID, err)
	}

	var record models.PlaylistRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("load playlist %s: %w: %v", playlistID, ErrCorrupt, err)
	}
	return &record, nil
}

func (s *JSONStore) SavePlaylist(_ context.Context, record *models.PlaylistRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.playlistDir(record.PlaylistID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create playlist directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode playlist %s: %w", record.PlaylistID, err)
	}
	return writeFileAtomic(filepath.Join(dir, stateFileName), data)
}

func (s *JSONStore) AppendVersion(_ context.Context, playlistID string, entry *models.VersionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.playlistDir(playlistID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create playlist directory: %w", err)
	}

	entries, err := s.readVersions(playlistID)
	if err != nil && !IsNotFound(err) {
		return err
	}

	entry.Version = len(entries) + 1
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode version history: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, versionsFileName), data)
}

func (s *JSONStore) GetVersions(_ context.Context, playlistID string) ([]*models.VersionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readVersions(playlistID)
	if IsNotFound(err) {
		return nil, nil
	}
	return entries, err
}

func (s *JSONStore) readVersions(playlistID string) ([]*models.VersionEntry, error) {
	path := filepath.Join(s.playlistDir(playlistID), versionsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read versions of %s: %w", playlistID, ErrNotFound)
		}
		return nil, fmt.Errorf("read versions of %s: %w", playlistID, err)
	}

	var entries []*models.VersionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("read versions of %s: %w: %v", playlistID, ErrCorrupt, err)
	}
	return entries, nil
}

func (s *JSONStore) ListPlaylists(_ context.Context) ([]*models.PlaylistSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	var summaries []*models.PlaylistSummary
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, d.Name(), stateFileName))
		if err != nil {
			// A version-only or half-created directory is not a listing
			// failure.
			continue
		}
		var record models.PlaylistRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("list playlists: %s: %w: %v", d.Name(), ErrCorrupt, err)
		}
		summaries = append(summaries, models.Summarize(&record))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PlaylistID < summaries[j].PlaylistID
	})
	return summaries, nil
}

func (s *JSONStore) DeletePlaylist(_ context.Context, playlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.playlistDir(playlistID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("delete playlist %s: %w", playlistID, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete playlist %s: %w", playlistID, err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// writeFileAtomic writes data next to path, fsyncs, then renames over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// sanitizeDirName replaces path-hostile characters in a playlist identifier
// so it can name a directory.
func sanitizeDirName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}
