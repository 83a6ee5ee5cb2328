// Package config loads the studio service configuration from the
// environment.
package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	LogLevel    string
	HTTPAddr    string

	DatabaseURL string // empty enables the in-memory gateway (development only)
	RedisURL    string // empty disables the snapshot cache
	NATSURL     string // empty disables save-event publishing
	JWTSecret   string

	SeedDisabled bool

	SuccessTTL time.Duration // transient success banner lifetime
	ErrorTTL   time.Duration // transient error banner lifetime
	CacheTTL   time.Duration // snapshot cache entry lifetime
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTPAddr:    strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "studio"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	cfg.SeedDisabled = envBool("SEED_DISABLED")
	cfg.SuccessTTL = envDuration("SUCCESS_BANNER_TTL", 3*time.Second)
	cfg.ErrorTTL = envDuration("ERROR_BANNER_TTL", 5*time.Second)
	cfg.CacheTTL = envDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute)
	return cfg, nil
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
