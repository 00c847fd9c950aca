// Command migrate applies database schema migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/ytvault/playlist-tracker-go/internal/config"
	"github.com/ytvault/playlist-tracker-go/pkg/logger"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	path := flag.String("path", "migrations", "path to migration files")
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

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Name, cfg.Database.SSLMode)

	m, err := migrate.New("file://"+*path, dsn)
	if err != nil {
		logger.Log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch *direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		logger.Log.Fatal("unknown direction", zap.String("direction", *direction))
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Log.Info("no migrations to apply")
			return
		}
		logger.Log.Fatal("migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Log.Fatal("failed to read migration version", zap.Error(err))
	}
	logger.Log.Info("migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
}
