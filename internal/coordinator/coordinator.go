package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"powerplay/internal/config"
	"powerplay/internal/docstore"
	"powerplay/internal/lease"
	"powerplay/internal/logging"
	"powerplay/internal/notifications"
)

// Coordinator drives work items through the pipeline phases. It reacts to
// document store changes, claims eligible items under the lease protocol,
// and releases them with the phase outcome. Several coordinators in
// separate processes can share one store; the lease protocol is the only
// cross-process exclusion.
type Coordinator struct {
	cfg       *config.Config
	store     *docstore.Store
	leases    *lease.Manager
	heartbeat *lease.HeartbeatAgent
	notifier  notifications.Service
	logger    *slog.Logger
	phases    []phase

	watchInterval time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight map[string]struct{}
}

// New constructs a coordinator. The notifier may be nil, which disables
// operator notifications.
func New(cfg *config.Config, store *docstore.Store, leases *lease.Manager, handlers Handlers, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(config.Notifications{})
	}
	return &Coordinator{
		cfg:    cfg,
		store:  store,
		leases: leases,
		heartbeat: lease.NewHeartbeatAgent(
			store,
			leases.WorkerID(),
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			logger,
		),
		notifier:      notifier,
		logger:        logging.NewComponentLogger(logger, "coordinator"),
		phases:        buildPhases(handlers),
		watchInterval: time.Duration(cfg.Workflow.WatchInterval) * time.Second,
		sweepInterval: time.Duration(cfg.Workflow.SweepInterval) * time.Second,
		now:           time.Now,
		inFlight:      make(map[string]struct{}),
	}
}

// Start begins background processing until Stop or context cancellation.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("coordinator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	watcher := docstore.NewWatcher(c.store, c.watchInterval, c.logger)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("change watcher stopped", logging.Error(err))
		}
	}()
	go c.eventLoop(runCtx, watcher.Events())

	if c.sweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(runCtx)
	}

	c.logger.Info("coordinator started",
		logging.String(logging.FieldWorkerID, c.leases.WorkerID()),
		logging.Duration("lease_ttl", c.leases.TTL()))
	return nil
}

// Stop terminates background processing and waits for in-flight phases.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.logger.Info("coordinator stopped")
}

// Wait blocks until all background goroutines finish. Useful after the
// outer context is cancelled without calling Stop.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// beginItem records an item as in flight; it reports false when the item is
// already being worked by this process.
func (c *Coordinator) beginItem(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Coordinator) endItem(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}
