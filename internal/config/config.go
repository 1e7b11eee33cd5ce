package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=stockcount port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	// optional external audit sink, empty = disabled
	AuditWebhookURL string

	// scanning sessions idle longer than this are closed by the sweeper
	SessionIdleTimeout time.Duration
	SessionSweepCron   string
}

// Load reads the environment, optionally seeded from envFile. A missing file is
// not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	idle, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "4h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AuditWebhookURL:    getEnv("AUDIT_WEBHOOK_URL", ""),
		SessionIdleTimeout: idle,
		SessionSweepCron:   getEnv("SESSION_SWEEP_CRON", "*/15 * * * *"),
	}

	return cfg, nil
}

// Validate runs the production safety checks. Warnings go to the returned
// slice, hard failures to the error.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.HTTPPort == "" {
		return nil, errors.New("HTTP_PORT must not be empty")
	}
	if c.SessionIdleTimeout <= 0 {
		return nil, errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %s", c.LogLevel)
	}

	if c.DatabaseDSN == defaultDSN {
		warnings = append(warnings, "DATABASE_DSN uses the default value, set your own Postgres DSN for production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		warnings = append(warnings, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}

	return warnings, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
