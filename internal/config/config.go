// Package config assembles runtime configuration from the environment, with
// optional .env loading for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the composition root needs to wire the service.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	AccessSecret  string
	RefreshSecret string
	Production    bool
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

const (
	envAddr          = "BLOODBRIDGE_ADDR"
	envPostgresDSN   = "BLOODBRIDGE_PG_DSN"
	envRedisURL      = "REDIS_URL"
	envAccessSecret  = "BLOODBRIDGE_ACCESS_SECRET"
	envRefreshSecret = "BLOODBRIDGE_REFRESH_SECRET"
	envEnvironment   = "BLOODBRIDGE_ENV"
	envAccessTTL     = "BLOODBRIDGE_ACCESS_TTL"
	envRefreshTTL    = "BLOODBRIDGE_REFRESH_TTL"
)

// Load reads configuration. A .env file (ENV_FILE_PATH or ./.env) is merged
// first when present; real environment variables win. The two signing secrets
// are required and must differ.
func Load() (Config, error) {
	loadDotEnv()

	cfg := Config{
		Addr:          getenv(envAddr, ":8080"),
		PostgresDSN:   strings.TrimSpace(os.Getenv(envPostgresDSN)),
		RedisURL:      strings.TrimSpace(os.Getenv(envRedisURL)),
		AccessSecret:  strings.TrimSpace(os.Getenv(envAccessSecret)),
		RefreshSecret: strings.TrimSpace(os.Getenv(envRefreshSecret)),
		Production:    strings.EqualFold(os.Getenv(envEnvironment), "production"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("config: %s and %s are required", envAccessSecret, envRefreshSecret)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, errors.New("config: access and refresh secrets must differ")
	}

	var err error
	if cfg.AccessTTL, err = durationEnv(envAccessTTL, cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = durationEnv(envRefreshTTL, cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv() {
	path := os.Getenv("ENV_FILE_PATH")
	if path == "" {
		path = ".env"
	}
	// Missing files are fine: containers inject the environment directly.
	_ = godotenv.Load(path)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}
