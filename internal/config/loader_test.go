package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/birdwork/roost/internal/domain/phase"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roost.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8420" {
		t.Fatalf("default port = %s, want 8420", cfg.Server.Port)
	}
	if cfg.Orchestrator.MaxConcurrent != 2 {
		t.Fatalf("default max_concurrent = %d, want 2", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Phases.FeedReply.PerHour != 10 || cfg.Phases.FeedReply.MaxHours != 3 {
		t.Fatalf("feed defaults = %d/%d, want 10/3", cfg.Phases.FeedReply.PerHour, cfg.Phases.FeedReply.MaxHours)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
orchestrator:
  max_concurrent: 4
  run_deadline: 2h
phases:
  like:
    enabled: true
    max_actions: 7
    filter_enabled: true
    threshold: 0.4
    min_delay: 10s
    max_delay: 20s
accounts:
  - id: alice
    active: true
    keywords: [golang, distributed systems]
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("port = %s, want 9000", cfg.Server.Port)
	}
	if cfg.Orchestrator.RunDeadline != 2*time.Hour {
		t.Fatalf("run_deadline = %s, want 2h", cfg.Orchestrator.RunDeadline)
	}
	if got := cfg.Phases.For(phase.KindLike).MaxActions; got != 7 {
		t.Fatalf("like quota = %d, want 7", got)
	}
	if len(cfg.ActiveAccounts()) != 1 || cfg.ActiveAccounts()[0].ID != "alice" {
		t.Fatalf("active accounts = %+v, want alice", cfg.ActiveAccounts())
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
`)
	t.Setenv("ROOST_PORT", "9999")
	t.Setenv("ROOST_MAX_CONCURRENT", "8")
	t.Setenv("DATABASE_URL", "postgres://env:env@db:5432/roost")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Fatalf("port = %s, want env override 9999", cfg.Server.Port)
	}
	if cfg.Orchestrator.MaxConcurrent != 8 {
		t.Fatalf("max_concurrent = %d, want 8", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Postgres.DSN != "postgres://env:env@db:5432/roost" {
		t.Fatalf("dsn = %s, want env override", cfg.Postgres.DSN)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero concurrency", "orchestrator:\n  max_concurrent: 0\n"},
		{"threshold out of range", "phases:\n  like:\n    enabled: true\n    max_actions: 5\n    threshold: 1.5\n"},
		{"inverted delay window", "phases:\n  like:\n    enabled: true\n    max_actions: 5\n    min_delay: 60s\n    max_delay: 10s\n"},
		{"duplicate accounts", "accounts:\n  - id: alice\n  - id: alice\n"},
		{"empty account id", "accounts:\n  - id: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := LoadFrom(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestAccountPhaseOverride(t *testing.T) {
	path := writeConfig(t, `
phases:
  like:
    enabled: true
    max_actions: 10
    threshold: 0.3
accounts:
  - id: alice
    active: true
    keywords: [golang]
    phases:
      like:
        enabled: true
        max_actions: 2
        threshold: 0.8
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acct := cfg.ActiveAccounts()[0]
	eff := acct.PhaseConfig(phase.KindLike, cfg.Phases.For(phase.KindLike))
	if eff.MaxActions != 2 || eff.Threshold != 0.8 {
		t.Fatalf("effective config = %+v, want the account override", eff)
	}

	// Phases without an override fall back to the global default.
	global := cfg.Phases.For(phase.KindKeywordReply)
	if got := acct.PhaseConfig(phase.KindKeywordReply, global); got != global {
		t.Fatalf("expected global fallback, got %+v", got)
	}
}
