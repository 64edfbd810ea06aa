package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	StoreDriver       string
	DatabaseURL       string
	JWTSecretKey      string
	ServerPort        int
	RepositoryTimeout time.Duration
	AllowedOrigins    []string
	LogLevel          slog.Level

	RedisAddr         string
	RedisPassword     string
	RedisStreamMaxLen int64

	Archive ArchiveConfig

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// ArchiveConfig points at an S3-compatible bucket (Cloudflare R2) for completed results.
type ArchiveConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Load reads the configuration from environment variables.
// A .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:            envOr("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		JWTSecretKey:           os.Getenv("JWT_SECRET_KEY"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		Archive: ArchiveConfig{
			AccountID:       os.Getenv("ARCHIVE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("ARCHIVE_BUCKET"),
			PublicBaseURL:   os.Getenv("ARCHIVE_PUBLIC_BASE_URL"),
		},
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, cfg.StoreDriver)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(envOr("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	cfg.RepositoryTimeout, err = time.ParseDuration(envOr("REPOSITORY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPOSITORY_TIMEOUT environment variable: %w", err)
	}
	if cfg.RepositoryTimeout <= 0 {
		return nil, fmt.Errorf("REPOSITORY_TIMEOUT must be positive, got %s", cfg.RepositoryTimeout)
	}

	cfg.RedisStreamMaxLen, err = strconv.ParseInt(envOr("REDIS_STREAM_MAXLEN", "1000"), 10, 64)
	if err != nil || cfg.RedisStreamMaxLen <= 0 {
		return nil, fmt.Errorf("REDIS_STREAM_MAXLEN must be a positive integer")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword == "" {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_EMAIL is set")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
