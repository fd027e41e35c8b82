package testsupport

import (
	"path/filepath"
	"testing"

	"powerplay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Gemini.APIKey = "test"
	cfgVal.Workflow.WorkerID = "worker-test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Blob.Dir = filepath.Join(base, "media", "public")
	cfgVal.Blob.PublicBaseURL = "http://127.0.0.1:0/media"
	cfgVal.Overlay.FramesDir = filepath.Join(base, "assets", "frames")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerID overrides the worker identity on the test config.
func WithWorkerID(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.WorkerID = id
	}
}

// WithLeaseTTL overrides the lease TTL, in seconds.
func WithLeaseTTL(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.LeaseTTL = seconds
	}
}

// WithNtfyTopic points operator notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.Failures = true
		b.cfg.Notifications.Completions = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
