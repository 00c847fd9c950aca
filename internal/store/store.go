// Package store persists playlist state and version ledgers.
//
// Each playlist identifier owns one current-state unit and one append-only
// version ledger, independently readable and writable. Two backends are
// provided: PostgreSQL (JSONB rows) and plain JSON files.
package store

import (
	"context"
	"errors"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

var (
	// ErrNotFound is returned when no record exists for a playlist
	// identifier. This is the normal signal for a first-ever fetch, not a
	// failure.
	ErrNotFound = errors.New("playlist record not found")

	// ErrCorrupt is returned when a persisted record exists but cannot be
	// decoded. Callers must abort instead of reconciling against an empty
	// base, which would fabricate a spurious all-added version entry.
	ErrCorrupt = errors.New("playlist record is corrupt")
)

// Store reads and writes playlist state.
type Store interface {
	// LoadPlaylist returns the current state for a playlist, or ErrNotFound.
	LoadPlaylist(ctx context.Context, playlistID string) (*models.PlaylistRecord, error)

	// SavePlaylist atomically overwrites the entire current-state unit for
	// the record's playlist identifier.
	SavePlaylist(ctx context.Context, record *models.PlaylistRecord) error

	// AppendVersion appends one entry to the playlist's version ledger and
	// fills in the entry's version number.
	AppendVersion(ctx context.Context, playlistID string, entry *models.VersionEntry) error

	// GetVersions returns the playlist's version ledger in append order.
	GetVersions(ctx context.Context, playlistID string) ([]*models.VersionEntry, error)

	// ListPlaylists returns a summary of every stored playlist.
	ListPlaylists(ctx context.Context) ([]*models.PlaylistSummary, error)

	// DeletePlaylist removes a playlist's state and ledger.
	DeletePlaylist(ctx context.Context, playlistID string) error

	// Close releases backend resources.
	Close() error
}

// IsNotFound reports whether err is an absent-record result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCorrupt reports whether err is a corrupt-record failure.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
