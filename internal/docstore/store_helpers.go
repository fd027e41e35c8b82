package docstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, seq, status, inputs_json, score, score_wait_since, outputs_json, metrics_json, lock_owner, lock_acquired_at, lock_heartbeat_at, notify_sent, notify_failed, error_phase, error_message, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id             string
		seq            int64
		statusStr      string
		inputsJSON     string
		score          sql.NullInt64
		scoreWaitRaw   sql.NullString
		outputsJSON    sql.NullString
		metricsJSON    sql.NullString
		lockOwner      sql.NullString
		lockAcquired   sql.NullString
		lockHeartbeat  sql.NullString
		notifySent     int64
		notifyFailed   int64
		errorPhase     sql.NullString
		errorMessage   sql.NullString
		createdRaw     string
		updatedRaw     string
	)

	if err := scanner.Scan(
		&id,
		&seq,
		&statusStr,
		&inputsJSON,
		&score,
		&scoreWaitRaw,
		&outputsJSON,
		&metricsJSON,
		&lockOwner,
		&lockAcquired,
		&lockHeartbeat,
		&notifySent,
		&notifyFailed,
		&errorPhase,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	inputs, err := DecodeInputs([]byte(inputsJSON))
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}

	item := &Item{
		ID:     id,
		Seq:    seq,
		Status: Status(statusStr),
		Inputs: inputs,
		Notification: NotificationFlags{
			Sent:   notifySent != 0,
			Failed: notifyFailed != 0,
		},
	}

	if score.Valid {
		value := score.Int64
		item.Score = &value
	}
	if scoreWaitRaw.Valid {
		if since, err := parseTimeString(scoreWaitRaw.String); err == nil {
			item.ScoreWaitSince = &since
		}
	}
	if outputsJSON.Valid && outputsJSON.String != "" {
		if err := json.Unmarshal([]byte(outputsJSON.String), &item.Outputs); err != nil {
			return nil, fmt.Errorf("item %s: decode outputs: %w", id, err)
		}
	}
	if metricsJSON.Valid && metricsJSON.String != "" {
		if err := json.Unmarshal([]byte(metricsJSON.String), &item.Metrics); err != nil {
			return nil, fmt.Errorf("item %s: decode metrics: %w", id, err)
		}
	}

	if lockOwner.Valid && lockOwner.String != "" {
		lock := &Lock{Owner: lockOwner.String}
		if acquired, err := parseTimeString(lockAcquired.String); err == nil {
			lock.AcquiredAt = acquired
		}
		if heartbeat, err := parseTimeString(lockHeartbeat.String); err == nil {
			lock.HeartbeatAt = heartbeat
		}
		item.Lock = lock
	}

	if errorPhase.Valid || errorMessage.Valid {
		item.Error = &ErrorInfo{
			Phase:   errorPhase.String,
			Message: errorMessage.String,
		}
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func encodeJSONMap[V any](m map[string]V) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func lockFields(lock *Lock) (owner, acquired, heartbeat any) {
	if lock == nil {
		return nil, nil, nil
	}
	return lock.Owner,
		lock.AcquiredAt.UTC().Format(time.RFC3339Nano),
		lock.HeartbeatAt.UTC().Format(time.RFC3339Nano)
}

func errorFields(info *ErrorInfo) (phase, message any) {
	if info == nil {
		return nil, nil
	}
	return nullableString(info.Phase), nullableString(info.Message)
}
