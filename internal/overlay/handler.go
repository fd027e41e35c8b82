// Package overlay implements the second pipeline phase: compositing the
// score-tier card and producing the branded highlight video.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"powerplay/internal/config"
	"powerplay/internal/docstore"
	"powerplay/internal/logging"
	"powerplay/internal/media"
	"powerplay/internal/notifications"
	"powerplay/internal/retry"
	"powerplay/internal/services"
	"powerplay/internal/stage"
)

// MetricKey is the duration metric recorded on success.
const MetricKey = "overlayMs"

type videoGenerator interface {
	GenerateHighlight(ctx context.Context, heroImage []byte, gender string) ([]byte, error)
}

type artifactStore interface {
	Download(ctx context.Context, ref string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte) (string, error)
	UploadFile(ctx context.Context, name, sourcePath string) (string, error)
}

type videoBrander interface {
	BrandVideo(ctx context.Context, inputPath, outputPath, framePath string) error
}

// Handler produces the card and highlight video artifacts for a work item.
type Handler struct {
	videos   videoGenerator
	blobs    artifactStore
	brander  videoBrander
	notifier notifications.Service
	retry    *retry.Executor
	logger   *slog.Logger

	framesDir  string
	videoFrame string
	scoreWait  time.Duration
	now        func() time.Time
}

// NewHandler constructs the overlay phase handler.
func NewHandler(cfg *config.Config, videos videoGenerator, blobs artifactStore, brander videoBrander, notifier notifications.Service, retryExec *retry.Executor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(config.Notifications{})
	}
	return &Handler{
		videos:     videos,
		blobs:      blobs,
		brander:    brander,
		notifier:   notifier,
		retry:      retryExec,
		logger:     logging.NewComponentLogger(logger, "overlay"),
		framesDir:  cfg.Overlay.FramesDir,
		videoFrame: cfg.Overlay.VideoFrame,
		scoreWait:  time.Duration(cfg.Workflow.ScoreWaitTimeout) * time.Second,
		now:        time.Now,
	}
}

func (h *Handler) Name() string { return "overlay" }

// Ready requires a hero artifact, no prior video, and either a recorded
// score or an expired score wait. Items parked in the sticky overlay error
// state stay put until an operator clears them.
func (h *Handler) Ready(item *docstore.Item) bool {
	if item == nil || item.Status == docstore.StatusErrorOverlay {
		return false
	}
	if item.Output(docstore.OutputHero) == "" {
		return false
	}
	if item.Output(docstore.OutputVideo) != "" {
		return false
	}
	if item.Score != nil {
		return true
	}
	return h.scoreWaitExpired(item)
}

func (h *Handler) scoreWaitExpired(item *docstore.Item) bool {
	if item.ScoreWaitSince == nil {
		return false
	}
	return h.now().Sub(*item.ScoreWaitSince) > h.scoreWait
}

// effectiveScore resolves the item's score, defaulting to 0 when the kiosk
// never reported one inside the wait window.
func (h *Handler) effectiveScore(item *docstore.Item) (int64, bool) {
	if item.Score != nil {
		return *item.Score, false
	}
	return 0, true
}

func (h *Handler) Execute(ctx context.Context, item *docstore.Item) (stage.Result, error) {
	start := time.Now()
	logger := h.logger.With(logging.String(logging.FieldItemID, item.ID))
	result := stage.Result{Outputs: map[string]string{}}

	score, defaulted := h.effectiveScore(item)
	if defaulted {
		logger.Warn("no score reported inside the wait window, defaulting to 0")
		if err := h.notifier.NotifyScoreDefaulted(ctx, item.ID); err != nil {
			logger.Warn("score-default notification failed", logging.Error(err))
		}
	}

	heroPNG, err := h.blobs.Download(ctx, item.Output(docstore.OutputHero))
	if err != nil {
		return result, fmt.Errorf("fetch hero artifact: %w", err)
	}

	tier := media.TierForScore(score)
	framePath, err := media.PickFrame(h.framesDir, tier)
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, h.Name(), "pick frame",
			"No card frame available for tier "+string(tier), err)
	}
	logger.Info("composing score card",
		logging.Int64("score", score),
		logging.String("tier", string(tier)),
		logging.String("frame", filepath.Base(framePath)))

	cardPNG, err := media.ComposeCard(heroPNG, framePath)
	if err != nil {
		return result, fmt.Errorf("compose card: %w", err)
	}
	cardRef, err := h.blobs.Upload(ctx, item.ID+"/card.png", cardPNG)
	if err != nil {
		return result, fmt.Errorf("publish card: %w", err)
	}
	result.Outputs[docstore.OutputCard] = cardRef

	rawVideo, err := retry.DoValue(h.retry, ctx, "generate highlight", func(ctx context.Context) ([]byte, error) {
		data, genErr := h.videos.GenerateHighlight(ctx, heroPNG, item.Inputs.Gender)
		if errors.Is(genErr, services.ErrValidation) || errors.Is(genErr, services.ErrConfiguration) {
			return nil, retry.Permanent(genErr)
		}
		return data, genErr
	})
	if err != nil {
		return result, err
	}

	videoRef, err := h.brandAndPublish(ctx, item.ID, rawVideo)
	if err != nil {
		// The raw clip is still worth keeping when branding fails.
		if rawRef, uploadErr := h.blobs.Upload(ctx, item.ID+"/video-raw.mp4", rawVideo); uploadErr == nil {
			result.Outputs[docstore.OutputVideoRaw] = rawRef
			logger.Warn("branding failed, raw highlight preserved",
				logging.String("artifact", rawRef), logging.Error(err))
		} else {
			logger.Warn("branding failed and raw highlight could not be preserved",
				logging.Error(uploadErr))
		}
		return result, err
	}
	result.Outputs[docstore.OutputVideo] = videoRef

	logger.Info("highlight video published", logging.String("artifact", videoRef))
	result.Metrics = map[string]int64{MetricKey: stage.MillisSince(start)}
	return result, nil
}

// brandAndPublish runs the ffmpeg frame overlay on the generated clip and
// uploads the result.
func (h *Handler) brandAndPublish(ctx context.Context, itemID string, rawVideo []byte) (string, error) {
	workDir, err := os.MkdirTemp("", "powerplay-overlay-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "raw.mp4")
	if err := os.WriteFile(inputPath, rawVideo, 0o644); err != nil {
		return "", fmt.Errorf("stage raw video: %w", err)
	}

	outputPath := filepath.Join(workDir, "branded.mp4")
	if err := h.brander.BrandVideo(ctx, inputPath, outputPath, h.videoFrame); err != nil {
		return "", err
	}

	ref, err := h.blobs.UploadFile(ctx, itemID+"/video.mp4", outputPath)
	if err != nil {
		return "", fmt.Errorf("publish video: %w", err)
	}
	return ref, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.videos == nil {
		return stage.Unhealthy(h.Name(), "video backend not configured")
	}
	if info, err := os.Stat(h.framesDir); err != nil || !info.IsDir() {
		return stage.Unhealthy(h.Name(), "frames directory unavailable: "+h.framesDir)
	}
	if _, err := os.Stat(h.videoFrame); err != nil {
		return stage.Unhealthy(h.Name(), "video frame unavailable: "+h.videoFrame)
	}
	return stage.Healthy(h.Name())
}
