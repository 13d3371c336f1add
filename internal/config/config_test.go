package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE_PATH", "testdata/does-not-exist.env")
	t.Setenv("BLOODBRIDGE_ACCESS_SECRET", "access-secret")
	t.Setenv("BLOODBRIDGE_REFRESH_SECRET", "refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.Production {
		t.Fatal("production flag should default to false")
	}
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected TTLs: %v / %v", cfg.AccessTTL, cfg.RefreshTTL)
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("ENV_FILE_PATH", "testdata/does-not-exist.env")
	t.Setenv("BLOODBRIDGE_ACCESS_SECRET", "")
	t.Setenv("BLOODBRIDGE_REFRESH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing secrets")
	}
}

func TestLoadRejectsIdenticalSecrets(t *testing.T) {
	t.Setenv("ENV_FILE_PATH", "testdata/does-not-exist.env")
	t.Setenv("BLOODBRIDGE_ACCESS_SECRET", "shared")
	t.Setenv("BLOODBRIDGE_REFRESH_SECRET", "shared")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected distinct-secret error, got %v", err)
	}
}

func TestLoadProductionFlagAndOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BLOODBRIDGE_ENV", "Production")
	t.Setenv("BLOODBRIDGE_ADDR", ":9090")
	t.Setenv("BLOODBRIDGE_ACCESS_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production {
		t.Fatal("expected production flag")
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("unexpected access TTL: %v", cfg.AccessTTL)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("BLOODBRIDGE_REFRESH_TTL", "yesterday")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable TTL")
	}
}
