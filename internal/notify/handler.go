// Package notify implements the final pipeline phase: emailing the player
// their download page once the artifacts exist.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/logging"
	"powerplay/internal/retry"
	"powerplay/internal/services"
	"powerplay/internal/stage"
)

// MetricKey is the duration metric recorded on success.
const MetricKey = "notifyMs"

type resultMailer interface {
	SendResultEmail(ctx context.Context, toEmail, firstName string) error
	Configured() bool
}

// Handler delivers the result email exactly once per work item.
type Handler struct {
	mailer resultMailer
	retry  *retry.Executor
	logger *slog.Logger
}

// NewHandler constructs the notify phase handler.
func NewHandler(mailer resultMailer, retryExec *retry.Executor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		mailer: mailer,
		retry:  retryExec,
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

func (h *Handler) Name() string { return "notify" }

// Ready requires a recipient, a card artifact, and an unsettled notification
// outcome. The sticky Sent/Failed flags are the duplicate-send guard; they
// are re-checked inside the claim transaction.
func (h *Handler) Ready(item *docstore.Item) bool {
	if item == nil || item.Status == docstore.StatusErrorNotify {
		return false
	}
	if item.Notification.Blocked() {
		return false
	}
	if item.Output(docstore.OutputCard) == "" {
		return false
	}
	return strings.TrimSpace(item.Inputs.Email) != ""
}

func (h *Handler) Execute(ctx context.Context, item *docstore.Item) (stage.Result, error) {
	start := time.Now()

	err := h.retry.Do(ctx, "send result email", func(ctx context.Context) error {
		sendErr := h.mailer.SendResultEmail(ctx, item.Inputs.Email, item.Inputs.FirstName)
		if errors.Is(sendErr, services.ErrValidation) || errors.Is(sendErr, services.ErrConfiguration) {
			return retry.Permanent(sendErr)
		}
		return sendErr
	})
	if err != nil {
		return stage.Result{}, err
	}

	h.logger.Info("result email delivered",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("to", item.Inputs.Email))

	return stage.Result{
		Metrics: map[string]int64{MetricKey: stage.MillisSince(start)},
	}, nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.mailer == nil || !h.mailer.Configured() {
		return stage.Unhealthy(h.Name(), "email transport not configured")
	}
	return stage.Healthy(h.Name())
}
