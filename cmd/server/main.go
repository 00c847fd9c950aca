package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/config"
	"github.com/ytvault/playlist-tracker-go/internal/fetch"
	"github.com/ytvault/playlist-tracker-go/internal/handler"
	"github.com/ytvault/playlist-tracker-go/internal/service"
	"github.com/ytvault/playlist-tracker-go/internal/store"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

func main() {
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

	var publisher service.ChangePublisher
	if cfg.RabbitMQ.Host != "" {
		p, err := service.NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Log.Info("change event publishing disabled")
	}

	svc := service.NewTrackerService(st, fetcher, publisher)
	router := handler.NewRouter(handler.NewPlaylistHandler(svc))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Log.Info("server stopped")
}

// newStore creates the configured persistence backend.
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
