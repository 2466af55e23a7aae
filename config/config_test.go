package config

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	if got := getEnv("TEST_STRING", "default"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := getEnv("MISSING_STRING", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("TEST_DURATION", "30")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", got)
	}
	t.Setenv("TEST_DURATION", "invalid")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 5*time.Minute {
		t.Fatalf("expected default duration, got %v", got)
	}

	t.Setenv("TEST_BOOL", "true")
	if got := getBoolEnv("TEST_BOOL", false); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	t.Setenv("TEST_BOOL", "invalid")
	if got := getBoolEnv("TEST_BOOL", true); got != true {
		t.Fatalf("expected default bool, got %v", got)
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("APP_PASSWORD", "letmein")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SESSION_SECRET is missing")
	}
}

func TestLoadRequiresPassword(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_PASSWORD", "")
	t.Setenv("APP_PASSWORD_HASH", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no password is configured")
	}
}

func TestLoadRejectsBothPasswordForms(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_PASSWORD", "letmein")
	t.Setenv("APP_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when both password forms are set")
	}
}

func TestLoadWarehouseRequiresDSN(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_PASSWORD", "letmein")
	t.Setenv("DATA_SOURCE", "warehouse")
	t.Setenv("MYSQL_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when warehouse source has no DSN")
	}
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_PASSWORD", "letmein")
	t.Setenv("DATA_SOURCE", "bigquery")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown DATA_SOURCE")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_PASSWORD", "letmein")
	t.Setenv("DATA_SOURCE", "")
	t.Setenv("DATA_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Data.Source != SourceCSV {
		t.Fatalf("expected csv source, got %q", cfg.Data.Source)
	}
	if cfg.Data.Dir != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.Data.Dir)
	}
	if cfg.Session.TTL != 8*time.Hour {
		t.Fatalf("expected default session TTL, got %v", cfg.Session.TTL)
	}
	if cfg.HTTP.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.HTTP.Port)
	}
}
