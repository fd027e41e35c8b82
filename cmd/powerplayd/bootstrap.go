package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"powerplay/internal/blob"
	"powerplay/internal/config"
	"powerplay/internal/coordinator"
	"powerplay/internal/docstore"
	"powerplay/internal/hero"
	"powerplay/internal/lease"
	"powerplay/internal/mailer"
	"powerplay/internal/media"
	"powerplay/internal/notifications"
	"powerplay/internal/notify"
	"powerplay/internal/overlay"
	"powerplay/internal/retry"
	"powerplay/internal/services/gemini"
	"powerplay/internal/services/veo"
)

// buildCoordinator assembles the phase handlers and lease plumbing around
// the shared store.
func buildCoordinator(ctx context.Context, cfg *config.Config, store *docstore.Store, logger *slog.Logger) (*coordinator.Coordinator, error) {
	workerID := cfg.Workflow.WorkerID
	if workerID == "" {
		workerID = "powerplayd-" + uuid.NewString()
	}

	blobs, err := blob.NewClient(cfg.Blob, logger)
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}
	images, err := gemini.NewImageClient(ctx, cfg.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("image client: %w", err)
	}
	videos, err := veo.NewClient(ctx, cfg.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("video client: %w", err)
	}

	notifier := notifications.NewService(cfg.Notifications)
	retryExec := retry.NewExecutor(retry.FromSeconds(cfg.Workflow.RetryDelays), logger)
	brander := media.NewBrander(cfg.FFmpegBinary(), logger)

	handlers := coordinator.Handlers{
		Hero:    hero.NewHandler(images, blobs, retryExec, logger),
		Overlay: overlay.NewHandler(cfg, videos, blobs, brander, notifier, retryExec, logger),
		Notify:  notify.NewHandler(mailer.New(cfg.SMTP, logger), retryExec, logger),
	}

	leases := lease.NewManager(store, workerID, time.Duration(cfg.Workflow.LeaseTTL)*time.Second, logger)
	return coordinator.New(cfg, store, leases, handlers, notifier, logger), nil
}
