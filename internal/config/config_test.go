package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Jobs.InvitationSweepSchedule != "@every 15m" {
		t.Errorf("unexpected sweep schedule %q", cfg.Jobs.InvitationSweepSchedule)
	}
	if cfg.Kafka.Brokers != "" {
		t.Errorf("expected kafka disabled by default, got brokers %q", cfg.Kafka.Brokers)
	}
}

func TestLoad_ParsesTypedOverrides(t *testing.T) {
	t.Setenv("REDIS_DB", "3")
	t.Setenv("NEW_RELIC_ENABLED", "true")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("DB_RUN_MIGRATIONS", "false")

	cfg := Load()

	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	if !cfg.NewRelic.Enabled {
		t.Error("expected new relic enabled")
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("expected 3s read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.RunMigrations {
		t.Error("expected migrations disabled")
	}
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("SERVER_WRITE_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Redis.DB != 0 {
		t.Errorf("expected fallback redis db 0, got %d", cfg.Redis.DB)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("expected fallback write timeout, got %s", cfg.Server.WriteTimeout)
	}
}

func TestLoad_ParsesAllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")

	cfg := Load()

	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("unexpected origin %q", cfg.Server.AllowedOrigins[1])
	}
}
