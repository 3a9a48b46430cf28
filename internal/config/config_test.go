package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
postgres:
  url: postgres://localhost/game
redis:
  addr: localhost:6379
  ttl: 5m
provider:
  snapshot_dir: /var/snapshots
  cache_size: 16
rules:
  1:
    thresholds: [40, 20]
    options: [A, B, C]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Provider.SnapshotDir != "/var/snapshots" || cfg.Provider.CacheSize != 16 {
		t.Fatalf("unexpected provider config: %+v", cfg.Provider)
	}
	rule, ok := cfg.Rules[1]
	if !ok {
		t.Fatal("expected rule override for step 1")
	}
	if len(rule.Thresholds) != 2 || rule.Thresholds[0] != 40 {
		t.Fatalf("unexpected thresholds: %v", rule.Thresholds)
	}
	if len(rule.Options) != 3 || rule.Options[2] != "C" {
		t.Fatalf("unexpected options: %v", rule.Options)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("POSTGRES_URL", "postgres://env/override")
	t.Setenv("REDIS_ADDR", "env:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" || cfg.Postgres.URL != "postgres://env/override" || cfg.Redis.Addr != "env:6379" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("30s", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %v", got)
	}
	if got := TTLDuration("nope", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on garbage, got %v", got)
	}
}
