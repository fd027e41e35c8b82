package veo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"powerplay/internal/config"
	"powerplay/internal/logging"
	"powerplay/internal/services"
)

const (
	videoAspectRatio    = "9:16"
	videoResolution     = "720p"
	videoDurationSecs   = 8
	defaultPollInterval = 8 * time.Second
)

// backend is the slice of the genai SDK the client needs, kept narrow so
// tests can stub long-running video operations.
type backend interface {
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.Video) error
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (b *genaiBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (b *genaiBackend) Download(ctx context.Context, video *genai.Video) error {
	if len(video.VideoBytes) > 0 {
		return nil
	}
	_, err := b.client.Files.Download(ctx, video, nil)
	return err
}

// Client generates short highlight videos from hero portraits via Veo.
type Client struct {
	backend      backend
	model        string
	pollInterval time.Duration
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Veo client against the Gemini API.
func NewClient(ctx context.Context, cfg config.Gemini, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "overlay", "init",
			"Gemini API key is not configured", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create veo client: %w", err)
	}
	poll := time.Duration(cfg.VideoPollInterval) * time.Second
	return newClient(&genaiBackend{client: client}, cfg.VideoModel, poll, logger), nil
}

func newClient(b backend, model string, pollInterval time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Client{
		backend:      b,
		model:        model,
		pollInterval: pollInterval,
		logger:       logging.NewComponentLogger(logger, "veo"),
		sleep:        sleepContext,
	}
}

// Model returns the configured video model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateHighlight produces a short highlight clip seeded by the hero
// image and returns the MP4 bytes. The call blocks while the remote
// operation runs, polling until it completes or the context ends.
func (c *Client) GenerateHighlight(ctx context.Context, heroImage []byte, gender string) ([]byte, error) {
	if len(heroImage) == 0 {
		return nil, services.Wrap(services.ErrValidation, "overlay", "generate video",
			"Hero image is empty", nil)
	}

	image := &genai.Image{ImageBytes: heroImage, MIMEType: "image/png"}
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:     videoAspectRatio,
		Resolution:      videoResolution,
		DurationSeconds: genai.Ptr[int32](videoDurationSecs),
		NumberOfVideos:  1,
	}

	op, err := c.backend.GenerateVideos(ctx, c.model, highlightPrompt(gender), image, cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "overlay", "generate video",
			"Video backend request failed", err)
	}

	started := time.Now()
	for !op.Done {
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		op, err = c.backend.GetVideosOperation(ctx, op)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "overlay", "generate video",
				"Video operation poll failed", err)
		}
		c.logger.Debug("waiting for video operation",
			logging.Duration("elapsed", time.Since(started)))
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, services.Wrap(services.ErrNoOutput, "overlay", "generate video",
			"Video backend completed without producing a video", nil)
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, services.Wrap(services.ErrNoOutput, "overlay", "generate video",
			"Video backend returned an empty video record", nil)
	}
	if err := c.backend.Download(ctx, video); err != nil {
		return nil, services.Wrap(services.ErrTransient, "overlay", "generate video",
			"Video download failed", err)
	}
	if len(video.VideoBytes) == 0 {
		return nil, services.Wrap(services.ErrNoOutput, "overlay", "generate video",
			"Video download produced no bytes", nil)
	}

	c.logger.Info("highlight video generated",
		logging.Int("bytes", len(video.VideoBytes)),
		logging.Duration("elapsed", time.Since(started)))
	return video.VideoBytes, nil
}

func highlightPrompt(gender string) string {
	return fmt.Sprintf(`Cinematic 8-second highlight of %s skating dynamically forward on an ice rink.
The player is handling a puck with intensity, creating ice spray and shavings.
The camera follows low and close in a tracking shot, capturing the reflection on the ice
and the bright purple and blue stadium spotlights in the blurred background.
High-definition sports cinematography, photorealistic texture, stable,
eyes focused on the puck.

Cinematography:
Lens: 35mm-balanced
Lighting: neon-colorful-reflections
Mood: epic-grand-awe-inspiring

Technical Parameters:
Production Level: Cinematic
Pacing: Moderate

Audio:
Audio Volume: medium`, playerDescription(gender))
}

func playerDescription(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female":
		return "a professional female ice hockey player"
	case "male":
		return "a professional male ice hockey player"
	default:
		return "a professional ice hockey player"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
