package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/config"
	"github.com/ytvault/playlist-tracker-go/internal/models"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

// NewPool creates a pgx connection pool from database config and verifies
// connectivity before returning.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Log.Info("database pool established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name))

	return pool, nil
}

// wrapError maps driver-level errors to store sentinels.
func wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// PostgresStore keeps playlist state as JSONB rows and the version ledger as
// an append-only table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) LoadPlaylist(ctx context.Context, playlistID string) (*models.PlaylistRecord, error) {
	query := `SELECT state FROM playlist_states WHERE playlist_id = $1`

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, playlistID).Scan(&raw); err != nil {
		return nil, wrapError(err, "load playlist")
	}

	var record models.PlaylistRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("load playlist %s: %w: %v", playlistID, ErrCorrupt, err)
	}
	return &record, nil
}

func (s *PostgresStore) SavePlaylist(ctx context.Context, record *models.PlaylistRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode playlist %s: %w", record.PlaylistID, err)
	}

	// Single-statement upsert, so the whole state unit is replaced
	// atomically.
	query := `
		INSERT INTO playlist_states (playlist_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (playlist_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, record.PlaylistID, raw); err != nil {
		return wrapError(err, "save playlist")
	}
	return nil
}

func (s *PostgresStore) AppendVersion(ctx context.Context, playlistID string, entry *models.VersionEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode version entry: %w", err)
	}

	// Version numbers are per playlist and gapless. The sub-select and the
	// UNIQUE(playlist_id, version) constraint together keep concurrent
	// appends consistent; the service layer already serializes writers per
	// playlist.
	query := `
		INSERT INTO playlist_versions (playlist_id, version, entry, created_at)
		VALUES ($1,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM playlist_versions WHERE playlist_id = $1),
			$2, NOW())
		RETURNING version`

	if err := s.pool.QueryRow(ctx, query, playlistID, raw).Scan(&entry.Version); err != nil {
		return wrapError(err, "append version")
	}
	return nil
}

func (s *PostgresStore) GetVersions(ctx context.Context, playlistID string) ([]*models.VersionEntry, error) {
	query := `
		SELECT version, entry FROM playlist_versions
		WHERE playlist_id = $1
		ORDER BY version ASC`

	rows, err := s.pool.Query(ctx, query, playlistID)
	if err != nil {
		return nil, wrapError(err, "get versions")
	}
	defer rows.Close()

	var entries []*models.VersionEntry
	for rows.Next() {
		var (
			version int
			raw     []byte
		)
		if err := rows.Scan(&version, &raw); err != nil {
			return nil, wrapError(err, "scan version")
		}
		var entry models.VersionEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode version %d of %s: %w: %v", version, playlistID, ErrCorrupt, err)
		}
		entry.Version = version
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ListPlaylists(ctx context.Context) ([]*models.PlaylistSummary, error) {
	query := `SELECT state FROM playlist_states ORDER BY playlist_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapError(err, "list playlists")
	}
	defer rows.Close()

	var summaries []*models.PlaylistSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapError(err, "scan playlist")
		}
		var record models.PlaylistRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("list playlists: %w: %v", ErrCorrupt, err)
		}
		summaries = append(summaries, models.Summarize(&record))
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) DeletePlaylist(ctx context.Context, playlistID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err, "delete playlist")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM playlist_versions WHERE playlist_id = $1`, playlistID); err != nil {
		return wrapError(err, "delete versions")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM playlist_states WHERE playlist_id = $1`, playlistID)
	if err != nil {
		return wrapError(err, "delete state")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete playlist %s: %w", playlistID, ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
