package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested work item does not exist.
var ErrNotFound = errors.New("work item not found")

// nextSeq assigns each write a position in the store-wide change order.
const nextSeq = "(SELECT COALESCE(MAX(seq), 0) + 1 FROM work_items)"

// Create inserts a new unclaimed work item. The id is the stable record
// key, normally the player's email address.
func (s *Store) Create(ctx context.Context, id string, inputs Inputs) (*Item, error) {
	if id == "" {
		return nil, errors.New("item id is required")
	}
	inputsJSON, err := EncodeInputs(inputs)
	if err != nil {
		return nil, err
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO work_items (id, seq, status, inputs_json, created_at, updated_at)
         VALUES (?, `+nextSeq+`, ?, ?, ?, ?)`,
		id,
		StatusUnclaimed,
		string(inputsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a work item by id, returning nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// List returns work items filtered by status set (or all items when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM work_items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListUnfinished returns items that may still need coordinator attention:
// everything not done and not parked in a sticky error state.
func (s *Store) ListUnfinished(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items
         WHERE status NOT IN (?, ?, ?, ?)
         ORDER BY created_at, id`,
		StatusDone,
		StatusErrorHero,
		StatusErrorOverlay,
		StatusErrorNotify,
	)
	if err != nil {
		return nil, fmt.Errorf("list unfinished items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ChangesSince returns items whose last write landed after the given
// sequence position, in write order. It backs the polling change feed.
func (s *Store) ChangesSince(ctx context.Context, seq int64) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE seq > ? ORDER BY seq`,
		seq,
	)
	if err != nil {
		return nil, fmt.Errorf("list changed items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// MaxSeq returns the highest write sequence currently in the store.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM work_items`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read max seq: %w", err)
	}
	return seq, nil
}

// Remove deletes an item by id.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM work_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete work item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Health summarizes item counts by lifecycle position.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("summarize health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch status := Status(statusStr); {
		case status == StatusUnclaimed:
			summary.Unclaimed += count
		case status == StatusDone:
			summary.Done += count
		case status.IsError():
			summary.Failed += count
		case status == StatusAwaitingScore || status == StatusReadyForNotify:
			summary.Waiting += count
		default:
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
