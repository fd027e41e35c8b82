package config

const (
	defaultDataDir   = "~/.local/share/powerplay/data"
	defaultMediaDir  = "~/.local/share/powerplay/media"
	defaultLogDir    = "~/.local/share/powerplay/logs"
	defaultAssetsDir = "~/.local/share/powerplay/assets"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultLeaseTTL          = 900
	defaultHeartbeatInterval = 45
	defaultScoreWaitTimeout  = 480
	defaultWatchInterval     = 1
	defaultSweepInterval     = 60

	defaultGeminiImageModel  = "gemini-2.5-flash-image"
	defaultGeminiVideoModel  = "veo-3.1-fast-generate-preview"
	defaultVideoPollInterval = 8

	defaultBlobRequestTimeout = 60

	defaultSMTPHost  = "smtp.gmail.com"
	defaultSMTPPort  = 587
	defaultBrandName = "Powerplay"

	defaultNotifyRequestTimeout = 10
)

// defaultRetryDelays is the fixed bounded-retry schedule in seconds:
// three retries after the first attempt.
var defaultRetryDelays = []int{2, 5, 12}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			MediaDir:  defaultMediaDir,
			LogDir:    defaultLogDir,
			AssetsDir: defaultAssetsDir,
		},
		Workflow: Workflow{
			LeaseTTL:          defaultLeaseTTL,
			HeartbeatInterval: defaultHeartbeatInterval,
			ScoreWaitTimeout:  defaultScoreWaitTimeout,
			RetryDelays:       append([]int{}, defaultRetryDelays...),
			WatchInterval:     defaultWatchInterval,
			SweepInterval:     defaultSweepInterval,
		},
		Gemini: Gemini{
			ImageModel:        defaultGeminiImageModel,
			VideoModel:        defaultGeminiVideoModel,
			VideoPollInterval: defaultVideoPollInterval,
		},
		Blob: Blob{
			RequestTimeout: defaultBlobRequestTimeout,
		},
		SMTP: SMTP{
			Host:      defaultSMTPHost,
			Port:      defaultSMTPPort,
			BrandName: defaultBrandName,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Failures:       true,
			Completions:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
