package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"powerplay/internal/docstore"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
media_dir = %q
log_dir = %q
assets_dir = %q

[gemini]
api_key = "test"

[blob]
dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "media"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "assets"),
		filepath.Join(base, "blobs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", configPath))
	err := cmd.Execute()
	return out.String(), err
}

func TestSubmitScoreStatusRoundTrip(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "submit", "player@example.com",
		"--first-name", "jordan", "--gender", "female", "--photo", "photos/player.jpg")
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "player@example.com") {
		t.Fatalf("unexpected submit output %q", out)
	}

	if out, err := runCommand(t, configPath, "score", "player@example.com", "250"); err != nil {
		t.Fatalf("score failed: %v\n%s", err, out)
	}

	out, err = runCommand(t, configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "player@example.com") || !strings.Contains(out, "250") {
		t.Fatalf("status output missing item: %s", out)
	}
	if !strings.Contains(out, "unclaimed") {
		t.Fatalf("status output missing lifecycle state: %s", out)
	}
}

func TestScoreUnknownItemFails(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "score", "nobody@example.com", "10"); err == nil {
		t.Fatal("score on missing item should fail")
	}
}

func TestClearErrorRequiresErroredItem(t *testing.T) {
	configPath := writeTestConfig(t)
	if out, err := runCommand(t, configPath, "submit", "player@example.com",
		"--photo", "photos/player.jpg"); err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if _, err := runCommand(t, configPath, "clear-error", "player@example.com"); err == nil {
		t.Fatal("clear-error on healthy item should fail")
	}
}

func TestRemoveItem(t *testing.T) {
	configPath := writeTestConfig(t)
	if out, err := runCommand(t, configPath, "submit", "player@example.com",
		"--photo", "photos/player.jpg"); err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	if out, err := runCommand(t, configPath, "remove", "player@example.com"); err != nil {
		t.Fatalf("remove failed: %v\n%s", err, out)
	}
	if _, err := runCommand(t, configPath, "remove", "player@example.com"); err == nil {
		t.Fatal("removing twice should fail")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out.String())
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("init over an existing file should fail without --overwrite")
	}
}

func TestRenderItemsTable(t *testing.T) {
	score := int64(321)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &docstore.Item{
		ID:     "player@example.com",
		Status: docstore.StatusProcessingOverlay,
		Score:  &score,
		Outputs: map[string]string{
			docstore.OutputHero: "hero-ref",
			docstore.OutputCard: "card-ref",
		},
		Lock: &docstore.Lock{
			Owner:       "worker-1",
			AcquiredAt:  now.Add(-90 * time.Second),
			HeartbeatAt: now.Add(-30 * time.Second),
		},
		UpdatedAt: now,
	}

	rendered := renderItemsTable([]*docstore.Item{item}, now)
	for _, want := range []string{"player@example.com", "processing_overlay", "321", "card,hero", "worker-1 (30s ago)"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, rendered)
		}
	}
}

func TestParseStatusFilterRejectsUnknown(t *testing.T) {
	if _, err := parseStatusFilter([]string{"bogus"}); err == nil {
		t.Fatal("unknown status should be rejected")
	}
	statuses, err := parseStatusFilter([]string{"done", "ERROR_HERO"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(statuses) != 2 || statuses[1] != docstore.StatusErrorHero {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}
