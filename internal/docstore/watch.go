package docstore

import (
	"context"
	"log/slog"
	"time"

	"powerplay/internal/logging"
)

// Event is one observed change to a work item. Initial marks the snapshot
// burst a fresh watcher emits for every existing record before it starts
// streaming live changes, so consumers can tell pre-existing records from
// new writes.
type Event struct {
	Item    *Item
	Initial bool
}

// Watcher turns the store's write sequence into a polled change feed,
// standing in for the server-push snapshots a hosted document store
// provides.
type Watcher struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
	events   chan Event
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(store *Store, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		store:    store,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "docstore-watcher"),
		events:   make(chan Event, 64),
	}
}

// Events returns the change feed. The channel closes when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run emits the initial snapshot burst and then polls for new writes until
// the context is canceled. Poll errors are logged and retried on the next
// tick rather than terminating the feed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	lastSeq, err := w.emitSnapshot(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		changed, err := w.store.ChangesSince(ctx, lastSeq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("change poll failed", logging.Error(err))
			continue
		}
		for _, item := range changed {
			if item.Seq > lastSeq {
				lastSeq = item.Seq
			}
			if !w.send(ctx, Event{Item: item}) {
				return ctx.Err()
			}
		}
	}
}

func (w *Watcher) emitSnapshot(ctx context.Context) (int64, error) {
	items, err := w.store.List(ctx)
	if err != nil {
		return 0, err
	}
	var lastSeq int64
	for _, item := range items {
		if item.Seq > lastSeq {
			lastSeq = item.Seq
		}
		if !w.send(ctx, Event{Item: item, Initial: true}) {
			return lastSeq, ctx.Err()
		}
	}
	w.logger.Debug("snapshot burst complete", logging.Int("items", len(items)))
	return lastSeq, nil
}

func (w *Watcher) send(ctx context.Context, event Event) bool {
	select {
	case w.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
