//go:build integration

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ytvault/playlist-tracker-go/internal/models"
)

// setupPostgres starts a disposable PostgreSQL container, applies the
// migrations, and returns a connected store.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("playlist_tracker_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	m, err := migrate.New("file://"+migrationsPath, connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPostgresStore(pool)
}

func TestPostgresStoreIntegration(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	t.Run("load missing returns not found", func(t *testing.T) {
		_, err := store.LoadPlaylist(ctx, "PLmissing")
		assert.True(t, IsNotFound(err))
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		record := testRecord("PLintegration")
		require.NoError(t, store.SavePlaylist(ctx, record))

		loaded, err := store.LoadPlaylist(ctx, "PLintegration")
		require.NoError(t, err)
		assert.Equal(t, record.PlaylistID, loaded.PlaylistID)
		assert.Equal(t, record.Title, loaded.Title)
		require.Contains(t, loaded.Videos, "dQw4w9WgXcQ")
		assert.Equal(t, models.StatusLive, loaded.Videos["dQw4w9WgXcQ"].Status)
		assert.Len(t, loaded.Videos["dQw4w9WgXcQ"].StatusHistory, 1)
	})

	t.Run("save overwrites whole state", func(t *testing.T) {
		record := testRecord("PLintegration")
		record.Title = "Renamed Playlist"
		require.NoError(t, store.SavePlaylist(ctx, record))

		loaded, err := store.LoadPlaylist(ctx, "PLintegration")
		require.NoError(t, err)
		assert.Equal(t, "Renamed Playlist", loaded.Title)
	})

	t.Run("append versions numbers sequentially", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			entry := &models.VersionEntry{
				Timestamp:   time.Now().UTC(),
				VideosAdded: []string{"dQw4w9WgXcQ"},
			}
			require.NoError(t, store.AppendVersion(ctx, "PLintegration", entry))
			assert.Equal(t, i, entry.Version)
		}

		entries, err := store.GetVersions(ctx, "PLintegration")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, i+1, e.Version)
		}
	})

	t.Run("version ledgers are independent per playlist", func(t *testing.T) {
		entry := &models.VersionEntry{Timestamp: time.Now().UTC()}
		require.NoError(t, store.AppendVersion(ctx, "PLother", entry))
		assert.Equal(t, 1, entry.Version)
	})

	t.Run("list playlists", func(t *testing.T) {
		require.NoError(t, store.SavePlaylist(ctx, testRecord("PLsecond")))

		summaries, err := store.ListPlaylists(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(summaries), 2)
		assert.Equal(t, 1, summaries[0].VideoCount)
	})

	t.Run("delete playlist removes state and ledger", func(t *testing.T) {
		require.NoError(t, store.DeletePlaylist(ctx, "PLintegration"))

		_, err := store.LoadPlaylist(ctx, "PLintegration")
		assert.True(t, IsNotFound(err))

		entries, err := store.GetVersions(ctx, "PLintegration")
		require.NoError(t, err)
		assert.Empty(t, entries)

		err = store.DeletePlaylist(ctx, "PLintegration")
		assert.True(t, IsNotFound(err))
	})
}
