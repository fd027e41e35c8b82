package lease

import (
	"context"
	"log/slog"
	"time"

	"powerplay/internal/docstore"
	"powerplay/internal/logging"
)

// Store is the subset of the document store the lease protocol needs.
type Store interface {
	TransactionalUpdate(ctx context.Context, id string, fn func(*docstore.Item) (bool, error)) (bool, error)
	TouchHeartbeat(ctx context.Context, id, owner string) (bool, error)
}

// Manager implements the time-bounded claim protocol over transactional
// record updates. A claim is an atomic read-check-write: workers that lose
// the race observe either the changed record or the sequence conflict and
// back off.
type Manager struct {
	store    Store
	workerID string
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a lease manager for one worker identity.
func NewManager(store Store, workerID string, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:    store,
		workerID: workerID,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "lease"),
		now:      time.Now,
	}
}

// WorkerID returns the identity written into acquired locks.
func (m *Manager) WorkerID() string {
	return m.workerID
}

// TTL returns the silence window after which a lock is stealable.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// TryClaim attempts to move the item into the desired processing status
// under this worker's lock. The guard runs inside the transaction against
// the freshly read record; returning false declines the claim without
// error. TryClaim reports false whenever another worker holds a fresh
// lock, the item already advanced, the guard declines, or the record
// changed mid-claim.
func (m *Manager) TryClaim(ctx context.Context, id string, desired docstore.Status, guard func(*docstore.Item) bool) (bool, error) {
	now := m.now().UTC()
	claimed, err := m.store.TransactionalUpdate(ctx, id, func(item *docstore.Item) (bool, error) {
		stale := item.Lock.Expired(m.ttl, now)
		if item.Lock != nil && item.Lock.Owner != m.workerID && !stale {
			return false, nil
		}
		// A record already sitting in the desired status was claimed by
		// someone who is still making progress unless their lock went
		// silent past the TTL.
		if item.Status == desired && !(item.Lock != nil && stale) {
			return false, nil
		}
		if guard != nil && !guard(item) {
			return false, nil
		}
		if item.Lock != nil && item.Lock.Owner != m.workerID {
			m.logger.Info("stealing stale lock",
				logging.String(logging.FieldItemID, id),
				logging.String("previous_owner", item.Lock.Owner),
				logging.Time("lock_fresh_at", item.Lock.FreshAt()))
		}
		item.Status = desired
		item.Lock = &docstore.Lock{
			Owner:       m.workerID,
			AcquiredAt:  now,
			HeartbeatAt: now,
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// Release applies the completion patch and drops this worker's lock. If
// the lock was stolen while the phase ran, the record belongs to the new
// owner and the patch is discarded; Release reports whether the write
// landed.
func (m *Manager) Release(ctx context.Context, id string, patch docstore.Patch) (bool, error) {
	patch.ClearLock = true
	return m.store.TransactionalUpdate(ctx, id, func(item *docstore.Item) (bool, error) {
		if item.Lock != nil && item.Lock.Owner != m.workerID {
			m.logger.Warn("lock lost before release, discarding result",
				logging.String(logging.FieldItemID, id),
				logging.String("current_owner", item.Lock.Owner))
			return false, nil
		}
		patch.Apply(item)
		return true, nil
	})
}
