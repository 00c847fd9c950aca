// Command refresher periodically refreshes every tracked playlist and
// optionally downloads new videos.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/archive"
	"github.com/ytvault/playlist-tracker-go/internal/config"
	"github.com/ytvault/playlist-tracker-go/internal/download"
	"github.com/ytvault/playlist-tracker-go/internal/fetch"
	"github.com/ytvault/playlist-tracker-go/internal/service"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

func main() {
	interval := flag.Duration("interval", time.Hour, "time between refresh passes")
	withDownloads := flag.Bool("download", false, "download new videos after each refresh")
	withArchive := flag.Bool("archive", false, "upload completed downloads to the archival store")
	detailed := flag.Bool("detailed", false, "fetch full per-video metadata")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := newStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	fetcher := fetch.NewYtdlpFetcher(cfg.Fetch.Binary, cfg.Fetch.Timeout, cfg.Fetch.CookiesFile)
	svc := service.NewTrackerService(st, fetcher, nil)

	var dl *download.Manager
	if *withDownloads {
		dl = download.NewManager(st, cfg.Fetch.Binary, cfg.Download.Dir, cfg.Download.Quality,
			cfg.Fetch.CookiesFile, cfg.Download.Workers)
	}

	var up *archive.Uploader
	if *withArchive {
		if cfg.Archive.AccessKey == "" || cfg.Archive.SecretKey == "" {
			logger.Log.Fatal("archive credentials not configured")
		}
		up = archive.NewUploader(st, cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey)
	}

	depth := fetch.DepthFast
	if *detailed {
		depth = fetch.DepthDetailed
	}

	runPass(ctx, st, svc, dl, up, depth)
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("refresher stopping")
			return
		case <-ticker.C:
			runPass(ctx, st, svc, dl, up, depth)
		}
	}
}

// runPass refreshes every tracked playlist, a few at a time.
func runPass(ctx context.Context, st store.Store, svc *service.TrackerService, dl *download.Manager, up *archive.Uploader, depth fetch.Depth) {
	summaries, err := st.ListPlaylists(ctx)
	if err != nil {
		logger.Log.Error("failed to list playlists", zap.Error(err))
		return
	}
	if len(summaries) == 0 {
		logger.Log.Info("no playlists tracked yet")
		return
	}

	logger.Log.Info("refresh pass starting", zap.Int("playlists", len(summaries)))

	p := pool.New().WithMaxGoroutines(3)
	for _, summary := range summaries {
		playlistID := summary.PlaylistID
		url := "https://www.youtube.com/playlist?list=" + playlistID
		p.Go(func() {
			result, err := svc.RefreshPlaylist(ctx, url, depth)
			if err != nil {
				logger.Log.Error("refresh failed",
					zap.String("playlist_id", playlistID),
					zap.Error(err))
				return
			}
			logger.Log.Info("refreshed", zap.String("result", result.String()))

			if dl != nil && result.Changed {
				if _, err := dl.DownloadPlaylist(ctx, playlistID); err != nil {
					logger.Log.Error("download pass failed",
						zap.String("playlist_id", playlistID),
						zap.Error(err))
				}
			}

			if up != nil {
				summary, err := up.UploadPlaylist(ctx, playlistID)
				if err != nil {
					logger.Log.Error("archive pass failed",
						zap.String("playlist_id", playlistID),
						zap.Error(err))
				} else if summary.Attempted > 0 {
					logger.Log.Info("archive pass finished",
						zap.String("playlist_id", playlistID),
						zap.Int("archived", summary.Archived),
						zap.Int("failed", summary.Failed))
				}
			}
		})
	}
	p.Wait()

	logger.Log.Info("refresh pass finished")
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := store.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	case "json":
		return store.NewJSONStore(cfg.Storage.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
