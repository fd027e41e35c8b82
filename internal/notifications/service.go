package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"powerplay/internal/config"
)

const userAgent = "Powerplay-Go/0.1.0"

// Service defines the operator notification surface exposed to pipeline
// components.
type Service interface {
	NotifyItemCompleted(ctx context.Context, itemID string, elapsed time.Duration) error
	NotifyPhaseFailed(ctx context.Context, itemID, phase, message string) error
	NotifyScoreDefaulted(ctx context.Context, itemID string) error
	NotifyLockStolen(ctx context.Context, itemID, previousOwner string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		failures:    cfg.Failures,
		completions: cfg.Completions,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	failures    bool
	completions bool
}

func (n *ntfyService) NotifyItemCompleted(ctx context.Context, itemID string, elapsed time.Duration) error {
	if !n.completions {
		return nil
	}
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	data := payload{
		title:   "Powerplay - Done",
		message: fmt.Sprintf("Card and highlight delivered for %s in %s", strings.TrimSpace(itemID), elapsed),
		tags:    []string{"powerplay", "pipeline", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPhaseFailed(ctx context.Context, itemID, phase, message string) error {
	if !n.failures {
		return nil
	}
	data := payload{
		title: "Powerplay - Phase Failed",
		message: fmt.Sprintf("%s failed for %s: %s\nClear the error to retry",
			strings.TrimSpace(phase), strings.TrimSpace(itemID), strings.TrimSpace(message)),
		tags:     []string{"powerplay", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScoreDefaulted(ctx context.Context, itemID string) error {
	if !n.failures {
		return nil
	}
	data := payload{
		title:   "Powerplay - Score Missing",
		message: fmt.Sprintf("No score arrived for %s before the wait timeout; proceeding with 0", strings.TrimSpace(itemID)),
		tags:    []string{"powerplay", "score", "timeout"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLockStolen(ctx context.Context, itemID, previousOwner string) error {
	if !n.failures {
		return nil
	}
	data := payload{
		title: "Powerplay - Stale Lock Reclaimed",
		message: fmt.Sprintf("Took over %s from silent worker %s",
			strings.TrimSpace(itemID), strings.TrimSpace(previousOwner)),
		tags: []string{"powerplay", "lease", "steal"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Powerplay - Test",
		message:  "Notification system test",
		tags:     []string{"powerplay", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyItemCompleted(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifyPhaseFailed(context.Context, string, string, string) error  { return nil }
func (noopService) NotifyScoreDefaulted(context.Context, string) error               { return nil }
func (noopService) NotifyLockStolen(context.Context, string, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
