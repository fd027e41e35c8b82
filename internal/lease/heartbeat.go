package lease

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"powerplay/internal/logging"
)

// HeartbeatAgent refreshes lock liveness for items a worker is actively
// processing.
type HeartbeatAgent struct {
	store    Store
	workerID string
	interval time.Duration
	logger   *slog.Logger
}

// NewHeartbeatAgent creates an agent ticking at the given interval.
func NewHeartbeatAgent(store Store, workerID string, interval time.Duration, logger *slog.Logger) *HeartbeatAgent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatAgent{
		store:    store,
		workerID: workerID,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "heartbeat"),
	}
}

// StartLoop runs a heartbeat updater for a specific item until context
// cancellation. A heartbeat that no longer lands means the lock was lost;
// the loop keeps running so the phase's own release notices and discards
// the result.
func (h *HeartbeatAgent) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID string) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := h.logger.With(logging.String(logging.FieldItemID, itemID))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			touched, err := h.store.TouchHeartbeat(ctx, itemID, h.workerID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
				continue
			}
			if !touched {
				logger.Warn("heartbeat no longer lands, lock was lost or released")
			}
		}
	}
}
