package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"powerplay/internal/docstore"
	"powerplay/internal/logging"
	"powerplay/internal/services"
	"powerplay/internal/stage"
)

// Error messages persisted on work items are bounded so a pathological
// backend response cannot bloat the record.
const maxErrorMessageLen = 500

func (c *Coordinator) eventLoop(ctx context.Context, events <-chan docstore.Event) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			// Records that predate this process arrive in the snapshot
			// burst and are picked up by the sweep, not dispatched here.
			if event.Initial {
				continue
			}
			c.dispatch(ctx, event.Item)
		}
	}
}

func (c *Coordinator) sweepLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, err := c.store.ListUnfinished(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Warn("sweep listing failed", logging.Error(err))
				continue
			}
			for _, item := range items {
				c.dispatch(ctx, item)
			}
		}
	}
}

// dispatch decides whether an observed item is worth a worker goroutine.
// Cheap pre-claim filters only; the authoritative checks run inside the
// claim transaction.
func (c *Coordinator) dispatch(ctx context.Context, item *docstore.Item) {
	if item == nil || item.Status.IsTerminal() {
		return
	}
	if c.heldElsewhere(item) {
		return
	}
	if c.phaseFor(item) == nil {
		return
	}
	if !c.beginItem(item.ID) {
		return
	}

	c.wg.Add(1)
	go func(id string) {
		defer c.wg.Done()
		defer c.endItem(id)
		c.runItem(ctx, id)
	}(item.ID)
}

// heldElsewhere reports whether another worker holds a fresh lock.
func (c *Coordinator) heldElsewhere(item *docstore.Item) bool {
	if item.Lock == nil || item.Lock.Owner == c.leases.WorkerID() {
		return false
	}
	return !item.Lock.Expired(c.leases.TTL(), c.now().UTC())
}

// phaseFor returns the first phase willing to take the item, or nil.
func (c *Coordinator) phaseFor(item *docstore.Item) *phase {
	for i := range c.phases {
		if c.phases[i].handler.Ready(item) {
			return &c.phases[i]
		}
	}
	return nil
}

// runItem walks an item through every phase it is eligible for, claiming
// and releasing around each execution. It stops when no phase is ready or
// a claim is lost to another worker.
func (c *Coordinator) runItem(ctx context.Context, id string) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := c.store.Get(ctx, id)
		if err != nil {
			c.logger.Warn("item fetch failed",
				logging.String(logging.FieldItemID, id), logging.Error(err))
			return
		}
		if item == nil || item.Status.IsTerminal() {
			return
		}

		ph := c.phaseFor(item)
		if ph == nil {
			return
		}

		advanced, err := c.runPhase(ctx, ph, item)
		if err != nil || !advanced {
			return
		}
	}
}

// runPhase claims the item for one phase, executes it under a heartbeat,
// and releases with the outcome. It reports whether the item advanced and
// is worth re-examining.
func (c *Coordinator) runPhase(ctx context.Context, ph *phase, item *docstore.Item) (bool, error) {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithPhase(ctx, ph.handler.Name())
	ctx = services.WithWorkerID(ctx, c.leases.WorkerID())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	var stolenFrom string
	if item.Lock != nil && item.Lock.Owner != c.leases.WorkerID() {
		stolenFrom = item.Lock.Owner
	}

	claimed, err := c.leases.TryClaim(ctx, item.ID, ph.processing, ph.handler.Ready)
	if err != nil {
		logger.Warn("claim failed", logging.Error(err))
		return false, err
	}
	if !claimed {
		return false, nil
	}
	if stolenFrom != "" {
		if err := c.notifier.NotifyLockStolen(ctx, item.ID, stolenFrom); err != nil {
			logger.Warn("steal notification failed", logging.Error(err))
		}
	}

	claimedItem, err := c.store.Get(ctx, item.ID)
	if err != nil || claimedItem == nil {
		logger.Warn("claimed item unreadable", logging.Error(err))
		return false, err
	}

	logger.Info("phase started")
	start := c.now()
	result, execErr := c.executeWithHeartbeat(ctx, ph, claimedItem)

	if execErr != nil && errors.Is(execErr, context.Canceled) {
		// Shutdown mid-phase: leave the lock in place so a TTL steal
		// recovers the item, exactly as after a crash.
		logger.Info("phase interrupted by shutdown, lock left for recovery")
		return false, execErr
	}

	var patch docstore.Patch
	if execErr != nil {
		patch = ph.failurePatch(truncate(execErr.Error(), maxErrorMessageLen))
		// Partial outputs still merge on failure.
		patch.Outputs = result.Outputs
	} else {
		patch = ph.successPatch(result, c.now().UTC())
	}

	released, err := c.leases.Release(ctx, item.ID, patch)
	if err != nil {
		logger.Error("release failed", logging.Error(err))
		return false, err
	}
	if !released {
		logger.Warn("lock was stolen mid-phase, result discarded")
		return false, nil
	}

	if execErr != nil {
		logger.Error("phase failed",
			logging.Error(execErr),
			logging.Duration("phase_duration", c.now().Sub(start)))
		if err := c.notifier.NotifyPhaseFailed(ctx, item.ID, ph.handler.Name(), execErr.Error()); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
		return false, nil
	}

	logger.Info("phase completed",
		logging.Duration("phase_duration", c.now().Sub(start)))
	if patch.Status != nil && *patch.Status == docstore.StatusDone {
		if err := c.notifier.NotifyItemCompleted(ctx, item.ID, c.now().Sub(claimedItem.CreatedAt)); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return true, nil
}

// executeWithHeartbeat runs the phase handler while a heartbeat goroutine
// keeps the lock fresh. The heartbeat is cancelled and awaited before the
// release so no refresh can land after the lock clears.
func (c *Coordinator) executeWithHeartbeat(ctx context.Context, ph *phase, item *docstore.Item) (stage.Result, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go c.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	result, err := ph.handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return result, err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
