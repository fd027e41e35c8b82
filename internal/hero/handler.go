// Package hero implements the first pipeline phase: turning the player's
// uploaded photo into a generated hero portrait.
package hero

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/logging"
	"powerplay/internal/retry"
	"powerplay/internal/services"
	"powerplay/internal/services/gemini"
	"powerplay/internal/stage"
)

// MetricKey is the duration metric recorded on success.
const MetricKey = "heroMs"

type imageGenerator interface {
	GenerateHero(ctx context.Context, photo []byte, mimeType, gender string) ([]byte, error)
}

type artifactStore interface {
	Download(ctx context.Context, ref string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Handler produces the hero portrait artifact for a work item.
type Handler struct {
	images imageGenerator
	blobs  artifactStore
	retry  *retry.Executor
	logger *slog.Logger
}

// NewHandler constructs the hero phase handler.
func NewHandler(images imageGenerator, blobs artifactStore, retryExec *retry.Executor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		images: images,
		blobs:  blobs,
		retry:  retryExec,
		logger: logging.NewComponentLogger(logger, "hero"),
	}
}

func (h *Handler) Name() string { return "hero" }

// Ready requires the full intake payload and no prior hero artifact. Items
// parked in the sticky hero error state stay put until an operator clears
// them.
func (h *Handler) Ready(item *docstore.Item) bool {
	if item == nil || item.Status == docstore.StatusErrorHero {
		return false
	}
	if item.Output(docstore.OutputHero) != "" {
		return false
	}
	in := item.Inputs
	return strings.TrimSpace(in.PhotoRef) != "" &&
		strings.TrimSpace(in.FirstName) != "" &&
		strings.TrimSpace(in.Gender) != "" &&
		in.PhotoUploadedAt != nil
}

func (h *Handler) Execute(ctx context.Context, item *docstore.Item) (stage.Result, error) {
	start := time.Now()
	logger := h.logger.With(logging.String(logging.FieldItemID, item.ID))

	photo, err := h.blobs.Download(ctx, item.Inputs.PhotoRef)
	if err != nil {
		return stage.Result{}, fmt.Errorf("fetch player photo: %w", err)
	}

	mimeType := gemini.GuessMimeType(item.Inputs.PhotoRef)
	heroPNG, err := retry.DoValue(h.retry, ctx, "generate hero", func(ctx context.Context) ([]byte, error) {
		data, genErr := h.images.GenerateHero(ctx, photo, mimeType, item.Inputs.Gender)
		if errors.Is(genErr, services.ErrValidation) || errors.Is(genErr, services.ErrConfiguration) {
			return nil, retry.Permanent(genErr)
		}
		return data, genErr
	})
	if err != nil {
		return stage.Result{}, err
	}

	ref, err := h.blobs.Upload(ctx, artifactName(item.ID), heroPNG)
	if err != nil {
		return stage.Result{}, fmt.Errorf("publish hero: %w", err)
	}

	logger.Info("hero portrait generated",
		logging.String("artifact", ref),
		logging.Int64("bytes", int64(len(heroPNG))))

	return stage.Result{
		Outputs: map[string]string{docstore.OutputHero: ref},
		Metrics: map[string]int64{MetricKey: stage.MillisSince(start)},
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.images == nil {
		return stage.Unhealthy(h.Name(), "image backend not configured")
	}
	if h.blobs == nil {
		return stage.Unhealthy(h.Name(), "artifact store not configured")
	}
	return stage.Healthy(h.Name())
}

func artifactName(itemID string) string {
	return itemID + "/hero.png"
}
