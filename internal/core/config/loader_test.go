package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	os.Setenv("TEST_BASE_BRANCH", "release/2.4")
	defer os.Unsetenv("TEST_BASE_BRANCH")

	path := writeConfig(t, `
merge:
  base_branch: ${TEST_BASE_BRANCH}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Merge.BaseBranch != "release/2.4" {
		t.Errorf("Expected base branch release/2.4, got %s", cfg.Merge.BaseBranch)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format text, got %s", cfg.Logging.Format)
	}
	if cfg.Quota.DailyLimit != 10000 {
		t.Errorf("Expected default daily limit 10000, got %d", cfg.Quota.DailyLimit)
	}
}

func TestLoad_DurationsAndNesting(t *testing.T) {
	path := writeConfig(t, `
queue:
  poll_interval: 45s
  adaptive: true
  backoff:
    base_delay: 2s
    max_delay: 1m
breakers:
  query:
    failure_threshold: 7
    reset_timeout: 90s
quota:
  daily_limit: 500
  allocation:
    claude.query: 0.8
    claude.run: 0.2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Queue.PollInterval != 45*time.Second {
		t.Errorf("PollInterval = %v, want 45s", cfg.Queue.PollInterval)
	}
	if !cfg.Queue.Adaptive {
		t.Error("Adaptive not parsed")
	}
	if cfg.Queue.Backoff.BaseDelay != 2*time.Second || cfg.Queue.Backoff.MaxDelay != time.Minute {
		t.Errorf("Backoff = %+v, want 2s/1m", cfg.Queue.Backoff)
	}
	if cfg.Breakers.Query.FailureThreshold != 7 || cfg.Breakers.Query.ResetTimeout != 90*time.Second {
		t.Errorf("Query breaker = %+v, want threshold 7 reset 90s", cfg.Breakers.Query)
	}
	if cfg.Quota.DailyLimit != 500 {
		t.Errorf("DailyLimit = %d, want 500", cfg.Quota.DailyLimit)
	}
	if cfg.Quota.Allocation["claude.query"] != 0.8 {
		t.Errorf("Allocation = %v, want claude.query 0.8", cfg.Quota.Allocation)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 || cfg.Logging.Level != "info" {
		t.Errorf("Default() = %+v, want baseline defaults", cfg)
	}
}
