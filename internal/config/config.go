// Package config provides configuration management for the tracker.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Fetch    FetchConfig
	Download DownloadConfig
	Archive  ArchiveConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// StorageConfig selects the persistence backend.
//
// Backend is "postgres" or "json". The JSON backend stores one directory per
// playlist under Dir.
type StorageConfig struct {
	Backend string
	Dir     string
}

// DatabaseConfig contains PostgreSQL connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RabbitMQConfig contains connection and topology configuration for the
// change-event publisher. Leaving Host empty disables publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// FetchConfig configures the yt-dlp metadata fetcher.
type FetchConfig struct {
	Binary      string
	Timeout     time.Duration
	CookiesFile string
}

// DownloadConfig configures the download manager.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DownloadConfig struct {
	Dir     string
	Quality string
	Workers int
}

// ArchiveConfig configures the archival uploader. Empty keys disable uploads.
type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Endpoint  string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Storage
	viper.SetDefault("storage.backend", "postgres")
	viper.SetDefault("storage.dir", "./playlists")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "playlist_tracker")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "playlist.tracker")
	viper.SetDefault("rabbitmq.queue", "playlist.tracker.changes")
	viper.SetDefault("rabbitmq.routingkey", "playlist.changed")

	// Fetch
	viper.SetDefault("fetch.binary", "yt-dlp")
	viper.SetDefault("fetch.timeout", 10*time.Minute)
	viper.SetDefault("fetch.cookiesfile", "")

	// Download
	viper.SetDefault("download.dir", "./downloads")
	viper.SetDefault("download.quality", "1080p")
	viper.SetDefault("download.workers", 5)

	// Archive
	viper.SetDefault("archive.accesskey", "")
	viper.SetDefault("archive.secretkey", "")
	viper.SetDefault("archive.endpoint", "https://s3.us.archive.org")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
