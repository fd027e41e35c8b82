package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Patch is a partial, merge-style write. Only non-zero fields change the
// record; output keys already present on the item are never overwritten,
// so concurrent phase completions cannot clobber each other's artifacts.
type Patch struct {
	Status         *Status
	Outputs        map[string]string
	Metrics        map[string]int64
	Score          *int64
	ScoreWaitSince *time.Time
	Error          *ErrorInfo
	ClearError     bool
	Notification   *NotificationFlags
	ClearLock      bool
}

// Apply mutates the item per the patch semantics.
func (p Patch) Apply(item *Item) {
	if p.Status != nil {
		item.Status = *p.Status
	}
	if len(p.Outputs) > 0 {
		if item.Outputs == nil {
			item.Outputs = make(map[string]string, len(p.Outputs))
		}
		for key, value := range p.Outputs {
			if item.Outputs[key] == "" {
				item.Outputs[key] = value
			}
		}
	}
	if len(p.Metrics) > 0 {
		if item.Metrics == nil {
			item.Metrics = make(map[string]int64, len(p.Metrics))
		}
		for key, value := range p.Metrics {
			item.Metrics[key] = value
		}
	}
	if p.Score != nil {
		item.Score = p.Score
	}
	if p.ScoreWaitSince != nil {
		item.ScoreWaitSince = p.ScoreWaitSince
	}
	if p.Error != nil {
		item.Error = p.Error
	}
	if p.ClearError {
		item.Error = nil
	}
	if p.Notification != nil {
		item.Notification = *p.Notification
	}
	if p.ClearLock {
		item.Lock = nil
	}
}

// TransactionalUpdate reads the item, hands it to fn for in-place
// mutation, and writes it back only if no other writer touched the record
// in between. It returns (false, nil) when fn declines the update or when
// the record changed underneath, so callers treat both as a lost claim.
func (s *Store) TransactionalUpdate(ctx context.Context, id string, fn func(*Item) (bool, error)) (bool, error) {
	ctx = ensureContext(ctx)
	var applied bool
	err := retryOnBusy(ctx, func() error {
		var opErr error
		applied, opErr = s.transactionalUpdateOnce(ctx, id, fn)
		return opErr
	})
	return applied, err
}

func (s *Store) transactionalUpdateOnce(ctx context.Context, id string, fn func(*Item) (bool, error)) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("read for update: %w", err)
	}

	prevSeq := item.Seq
	proceed, err := fn(item)
	if err != nil {
		return false, err
	}
	if !proceed {
		return false, nil
	}

	res, err := writeItem(ctx, tx, item, prevSeq)
	if err != nil {
		return false, fmt.Errorf("write update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update: %w", err)
	}
	return true, nil
}

func writeItem(ctx context.Context, tx *sql.Tx, item *Item, prevSeq int64) (sql.Result, error) {
	outputsJSON, err := encodeJSONMap(item.Outputs)
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	metricsJSON, err := encodeJSONMap(item.Metrics)
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	lockOwner, lockAcquired, lockHeartbeat := lockFields(item.Lock)
	errorPhase, errorMessage := errorFields(item.Error)

	item.UpdatedAt = time.Now().UTC()

	return tx.ExecContext(
		ctx,
		`UPDATE work_items
         SET seq = `+nextSeq+`, status = ?, score = ?, score_wait_since = ?,
             outputs_json = ?, metrics_json = ?,
             lock_owner = ?, lock_acquired_at = ?, lock_heartbeat_at = ?,
             notify_sent = ?, notify_failed = ?,
             error_phase = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND seq = ?`,
		item.Status,
		nullableInt64(item.Score),
		nullableTime(item.ScoreWaitSince),
		outputsJSON,
		metricsJSON,
		lockOwner,
		lockAcquired,
		lockHeartbeat,
		boolToInt(item.Notification.Sent),
		boolToInt(item.Notification.Failed),
		errorPhase,
		errorMessage,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
		prevSeq,
	)
}

// mergeAttempts bounds the retries a Merge makes when concurrent writers
// keep winning the sequence race.
const mergeAttempts = 5

// Merge applies a patch to the record, retrying on concurrent writes.
// Unlike TransactionalUpdate a merge never gives up on contention; last
// writer wins for everything except output keys, which stay append-only.
func (s *Store) Merge(ctx context.Context, id string, patch Patch) error {
	for attempt := 0; attempt < mergeAttempts; attempt++ {
		applied, err := s.TransactionalUpdate(ctx, id, func(item *Item) (bool, error) {
			patch.Apply(item)
			return true, nil
		})
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("merge %s: too many concurrent writes", id)
}

// TouchHeartbeat refreshes the lock liveness timestamp, but only while the
// caller still owns the lock. It reports whether the heartbeat landed.
func (s *Store) TouchHeartbeat(ctx context.Context, id, owner string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET seq = `+nextSeq+`, lock_heartbeat_at = ?, updated_at = ?
         WHERE id = ? AND lock_owner = ?`,
		now,
		now,
		id,
		owner,
	)
	if err != nil {
		return false, fmt.Errorf("touch heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetScore records the player's game score, normally written by the kiosk
// after the round finishes.
func (s *Store) SetScore(ctx context.Context, id string, score int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET seq = `+nextSeq+`, score = ?, updated_at = ?
         WHERE id = ?`,
		score,
		now,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("set score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearError rolls a sticky error status back to the rest state that
// precedes the failed phase, releasing the lock and wiping the error so
// the coordinator retries the phase. A cleared notify failure also resets
// the failed notification flag.
func (s *Store) ClearError(ctx context.Context, id string) (bool, error) {
	return s.TransactionalUpdate(ctx, id, func(item *Item) (bool, error) {
		target, ok := item.Status.RollbackStatus()
		if !ok {
			return false, nil
		}
		if item.Status == StatusErrorNotify {
			item.Notification.Failed = false
		}
		item.Status = target
		item.Error = nil
		item.Lock = nil
		return true, nil
	})
}
