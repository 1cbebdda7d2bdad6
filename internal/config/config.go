// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Database (accounts, settings, family quotas, ghost folders)
	DatabaseURL string

	// Auth
	JWTSecret string

	// Uploads
	StagingDir    string
	MaxUploadSize int64

	// Storage-root cache
	RootCacheTTL time.Duration

	// Accounting
	UsageRecomputeInterval time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:             envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:            envOr("METRICS_ADDR", ":9090"),
		LogLevel:               envOr("LOG_LEVEL", "info"),
		LogFormat:              envOr("LOG_FORMAT", "json"),
		DatabaseURL:            envOr("DATABASE_URL", ""),
		JWTSecret:              envOr("JWT_SECRET", ""),
		StagingDir:             envOr("STAGING_DIR", "/data/staging"),
		MaxUploadSize:          envInt64("MAX_UPLOAD_SIZE", 10*1024*1024*1024), // 10 GiB default
		RootCacheTTL:           envDuration("ROOT_CACHE_TTL", 30*time.Second),
		UsageRecomputeInterval: envDuration("USAGE_RECOMPUTE_INTERVAL", 15*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
