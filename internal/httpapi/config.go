package httpapi

import (
	"fmt"
	"os"
	"time"
)

// Config carries the HTTP server settings.
type Config struct {
	Addr      string
	JWTSecret string
	JWTTTL    time.Duration
}

// ConfigFromEnv reads server settings from the environment.
//
//	HEMOCORE_HTTP_ADDR: listen address (default :8080)
//	HEMOCORE_JWT_SECRET: token signing secret (required)
//	HEMOCORE_JWT_TTL: token lifetime (default 24h)
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Addr:      os.Getenv("HEMOCORE_HTTP_ADDR"),
		JWTSecret: os.Getenv("HEMOCORE_JWT_SECRET"),
		JWTTTL:    24 * time.Hour,
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("HEMOCORE_JWT_SECRET is required")
	}
	if raw := os.Getenv("HEMOCORE_JWT_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse HEMOCORE_JWT_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, fmt.Errorf("HEMOCORE_JWT_TTL must be positive")
		}
		cfg.JWTTTL = ttl
	}
	return cfg, nil
}
