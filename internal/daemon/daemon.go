// Package daemon ties the coordinator, document store, and single-instance
// lock into one lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"powerplay/internal/config"
	"powerplay/internal/coordinator"
	"powerplay/internal/docstore"
	"powerplay/internal/logging"
)

// Daemon runs one coordinator process with flock-based exclusion so a host
// never starts two daemons against the same data directory. Multiple hosts
// sharing a store coordinate through the lease protocol instead.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *docstore.Store
	coord  *coordinator.Coordinator

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *docstore.Store, coord *coordinator.Coordinator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || coord == nil {
		return nil, errors.New("daemon requires config, store, and coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "powerplayd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		coord:    coord,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Start acquires the instance lock and launches the coordinator.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another powerplay daemon already holds " + d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.coord.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start coordinator: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.coord.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Health reports phase readiness and the store's item census.
func (d *Daemon) Health(ctx context.Context) (coordinator.Health, error) {
	return d.coord.Health(ctx)
}
