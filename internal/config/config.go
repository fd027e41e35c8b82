package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	MediaDir  string `toml:"media_dir"`
	LogDir    string `toml:"log_dir"`
	AssetsDir string `toml:"assets_dir"`
}

// Workflow contains coordinator timing and the lease protocol knobs.
type Workflow struct {
	// WorkerID identifies this process in work-item locks. Empty means a
	// unique id is generated at startup (WORKER_ID env overrides).
	WorkerID string `toml:"worker_id"`
	// LeaseTTL is the number of seconds of heartbeat silence after which a
	// lock is considered stale and stealable.
	LeaseTTL int `toml:"lease_ttl"`
	// HeartbeatInterval is the refresh period, in seconds, for held locks.
	HeartbeatInterval int `toml:"heartbeat_interval"`
	// ScoreWaitTimeout is how long, in seconds, the overlay phase waits for
	// a score before proceeding with a default of 0.
	ScoreWaitTimeout int `toml:"score_wait_timeout"`
	// RetryDelays is the fixed delay schedule, in seconds, applied between
	// attempts of a single external call.
	RetryDelays []int `toml:"retry_delays"`
	// WatchInterval is the change-feed poll period in seconds.
	WatchInterval int `toml:"watch_interval"`
	// SweepInterval is the period, in seconds, of the periodic re-dispatch
	// of unfinished items. Zero disables the sweep.
	SweepInterval int `toml:"sweep_interval"`
}

// Gemini contains configuration for the generative image and video backends.
type Gemini struct {
	APIKey            string `toml:"api_key"`
	ImageModel        string `toml:"image_model"`
	VideoModel        string `toml:"video_model"`
	VideoPollInterval int    `toml:"video_poll_interval"`
}

// Blob contains configuration for the artifact store.
type Blob struct {
	// Dir is the local directory artifacts are published into.
	Dir string `toml:"dir"`
	// PublicBaseURL is the URL prefix under which Dir is served.
	PublicBaseURL string `toml:"public_base_url"`
	// RequestTimeout bounds remote downloads, in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// SMTP contains configuration for the result email transport.
type SMTP struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	From            string `toml:"from"`
	BrandName       string `toml:"brand_name"`
	DownloadBaseURL string `toml:"download_base_url"`
	LogoPath        string `toml:"logo_path"`
}

// Notifications contains configuration for ntfy operator notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Failures       bool   `toml:"failures"`
	Completions    bool   `toml:"completions"`
}

// Overlay contains configuration for card compositing and video branding.
type Overlay struct {
	// FramesDir holds tier subdirectories (low/mid/high) of frame PNGs.
	FramesDir string `toml:"frames_dir"`
	// VideoFrame is the PNG overlaid onto generated videos.
	VideoFrame string `toml:"video_frame"`
	FFmpegBin  string `toml:"ffmpeg_bin"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Powerplay.
//
// Configuration sections by subsystem:
//   - Paths: data, media, log, and asset directories
//   - Workflow: lease TTL, heartbeat cadence, retry schedule, dispatch timing
//   - Gemini: generative image/video backend models and credentials
//   - Blob: artifact publication directory and public URL prefix
//   - SMTP: result email transport and branding
//   - Notifications: ntfy operator notification settings
//   - Overlay: frame assets and ffmpeg binary for stage 2
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Gemini        Gemini        `toml:"gemini"`
	Blob          Blob          `toml:"blob"`
	SMTP          SMTP          `toml:"smtp"`
	Notifications Notifications `toml:"notifications"`
	Overlay       Overlay       `toml:"overlay"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/powerplay/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("powerplay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeGemini(); err != nil {
		return err
	}
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	if err := c.normalizeOverlay(); err != nil {
		return err
	}
	c.normalizeSMTP()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeOverlay() error {
	if strings.TrimSpace(c.Overlay.FramesDir) == "" {
		c.Overlay.FramesDir = filepath.Join(c.Paths.AssetsDir, "frames")
	}
	var err error
	if c.Overlay.FramesDir, err = expandPath(c.Overlay.FramesDir); err != nil {
		return fmt.Errorf("overlay.frames_dir: %w", err)
	}
	if strings.TrimSpace(c.Overlay.VideoFrame) != "" {
		if c.Overlay.VideoFrame, err = expandPath(c.Overlay.VideoFrame); err != nil {
			return fmt.Errorf("overlay.video_frame: %w", err)
		}
	}
	if strings.TrimSpace(c.SMTP.LogoPath) != "" {
		if c.SMTP.LogoPath, err = expandPath(c.SMTP.LogoPath); err != nil {
			return fmt.Errorf("smtp.logo_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetsDir) == "" {
		c.Paths.AssetsDir = defaultAssetsDir
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() error {
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.ImageModel = strings.TrimSpace(c.Gemini.ImageModel)
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = defaultGeminiImageModel
	}
	c.Gemini.VideoModel = strings.TrimSpace(c.Gemini.VideoModel)
	if c.Gemini.VideoModel == "" {
		c.Gemini.VideoModel = defaultGeminiVideoModel
	}
	return nil
}

func (c *Config) normalizeBlob() error {
	if strings.TrimSpace(c.Blob.Dir) == "" {
		c.Blob.Dir = filepath.Join(c.Paths.MediaDir, "public")
	}
	var err error
	if c.Blob.Dir, err = expandPath(c.Blob.Dir); err != nil {
		return fmt.Errorf("blob.dir: %w", err)
	}
	c.Blob.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Blob.PublicBaseURL), "/")
	return nil
}

func (c *Config) normalizeSMTP() {
	if c.SMTP.Username == "" {
		if value, ok := os.LookupEnv("EMAIL_USERNAME"); ok {
			c.SMTP.Username = strings.TrimSpace(value)
		}
	}
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv("EMAIL_PASSWORD"); ok {
			c.SMTP.Password = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.SMTP.From) == "" {
		c.SMTP.From = c.SMTP.Username
	}
	c.SMTP.DownloadBaseURL = strings.TrimRight(strings.TrimSpace(c.SMTP.DownloadBaseURL), "/")
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WorkerID == "" {
		if value, ok := os.LookupEnv("WORKER_ID"); ok {
			c.Workflow.WorkerID = strings.TrimSpace(value)
		}
	}
	if len(c.Workflow.RetryDelays) == 0 {
		c.Workflow.RetryDelays = append([]int{}, defaultRetryDelays...)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// EnsureDirectories creates the directories daemon operation requires.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaDir, c.Paths.LogDir, c.Blob.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the work-item database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "powerplay.db")
}

// FFmpegBinary returns the ffmpeg executable used for video branding.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Overlay.FFmpegBin) != "" {
		return c.Overlay.FFmpegBin
	}
	return "ffmpeg"
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
