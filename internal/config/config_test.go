package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected 480 minute token ttl, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.DashboardCacheTTL() != 30*time.Second {
		t.Fatalf("expected 30s cache ttl, got %s", cfg.DashboardCacheTTL())
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REPORT_TIMEZONE", "UTC")

	cfg := Load()
	if cfg.Port != "9090" || cfg.RedisDB != 3 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	loc, err := cfg.ReportLocation()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v (%v)", loc, err)
	}
}

func TestReportLocationRejectsUnknownZone(t *testing.T) {
	cfg := Config{ReportTimezone: "Mars/Olympus"}
	if _, err := cfg.ReportLocation(); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}
