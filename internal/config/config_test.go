package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"powerplay/internal/config"
)

func TestDefaultsValidateWithAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Workflow.LeaseTTL != 900 {
		t.Fatalf("unexpected lease ttl: %d", cfg.Workflow.LeaseTTL)
	}
	if cfg.Workflow.HeartbeatInterval != 45 {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.ScoreWaitTimeout != 480 {
		t.Fatalf("unexpected score wait timeout: %d", cfg.Workflow.ScoreWaitTimeout)
	}
	if len(cfg.Workflow.RetryDelays) != 3 {
		t.Fatalf("unexpected retry schedule: %v", cfg.Workflow.RetryDelays)
	}
}

func TestValidateRejectsMissingAPIKey(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure without gemini api key")
	}
	if !strings.Contains(err.Error(), "gemini.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsHeartbeatBeyondTTL(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	cfg.Workflow.HeartbeatInterval = cfg.Workflow.LeaseTTL
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure when heartbeat interval >= lease ttl")
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
media_dir = "` + filepath.Join(dir, "media") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[gemini]
api_key = "from-file"

[workflow]
lease_ttl = 120
heartbeat_interval = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Workflow.LeaseTTL != 120 {
		t.Fatalf("expected lease_ttl override, got %d", cfg.Workflow.LeaseTTL)
	}
	if cfg.Gemini.APIKey != "from-file" {
		t.Fatalf("expected api key from file, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Blob.Dir != filepath.Join(dir, "media", "public") {
		t.Fatalf("expected blob dir derived from media dir, got %q", cfg.Blob.Dir)
	}
	if !filepath.IsAbs(cfg.Paths.AssetsDir) {
		t.Fatalf("expected assets dir to be absolute, got %q", cfg.Paths.AssetsDir)
	}
}

func TestWorkerIDFromEnv(t *testing.T) {
	t.Setenv("WORKER_ID", "env-worker")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workflow.WorkerID != "env-worker" {
		t.Fatalf("expected worker id from env, got %q", cfg.Workflow.WorkerID)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected gemini key from env, got %q", cfg.Gemini.APIKey)
	}
}
