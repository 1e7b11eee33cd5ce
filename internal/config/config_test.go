package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "LOG_LEVEL", "SESSION_IDLE_TIMEOUT", "SESSION_SWEEP_CRON", "AUDIT_WEBHOOK_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port, got %q", cfg.HTTPPort)
	}
	if cfg.SessionIdleTimeout != 4*time.Hour {
		t.Fatalf("expected 4h idle timeout, got %s", cfg.SessionIdleTimeout)
	}
	if cfg.AuditWebhookURL != "" {
		t.Fatalf("expected webhook disabled by default")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("SESSION_SWEEP_CRON", "")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SESSION_SWEEP_CRON=*/5 * * * *\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables already present, so clear it first
	os.Unsetenv("SESSION_SWEEP_CRON")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionSweepCron != "*/5 * * * *" {
		t.Fatalf("expected cron from file, got %q", cfg.SessionSweepCron)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		HTTPPort:           "8080",
		DatabaseDSN:        "host=db",
		JWTSecret:          strings.Repeat("x", 32),
		CORSOrigins:        "https://example.org",
		LogLevel:           "info",
		SessionIdleTimeout: time.Hour,
	}

	if w, err := base.Validate(); err != nil || len(w) != 0 {
		t.Fatalf("expected clean config, got warnings=%v err=%v", w, err)
	}

	short := base
	short.JWTSecret = "short"
	if _, err := short.Validate(); err == nil {
		t.Fatal("expected short secret to fail")
	}

	level := base
	level.LogLevel = "loud"
	if _, err := level.Validate(); err == nil {
		t.Fatal("expected unknown log level to fail")
	}

	def := base
	def.DatabaseDSN = defaultDSN
	w, err := def.Validate()
	if err != nil || len(w) != 1 {
		t.Fatalf("expected one warning, got %v %v", w, err)
	}
}
