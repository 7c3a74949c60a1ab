package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"township-pos-api/internal/model"
)

// AddToSyncQueue appends a pending mutation. Entries are never
// deduplicated: two updates to the same entity become two entries,
// replayed in order.
func (s *SQLiteStore) AddToSyncQueue(ctx context.Context, tableName, operation string, data interface{}) (*model.SyncQueueItem, error) {
	payload, err := marshalPayload(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sync payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (table_name, operation, data, created_at, attempts)
		VALUES (?, ?, ?, ?, 0)`,
		tableName, operation, string(payload), ts)
	if err != nil {
		return nil, fmt.Errorf("failed to add to sync queue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &model.SyncQueueItem{
		ID:        id,
		TableName: tableName,
		Operation: operation,
		Data:      payload,
		CreatedAt: parseTime(ts),
	}, nil
}

// GetSyncQueue returns every queued item oldest-first. Removal is
// explicit and per-item, only after confirmed remote success.
func (s *SQLiteStore) GetSyncQueue(ctx context.Context) ([]model.SyncQueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, operation, data, created_at, attempts, last_attempt, error_message
		FROM sync_queue ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync queue: %w", err)
	}
	defer rows.Close()

	var queue []model.SyncQueueItem
	for rows.Next() {
		var (
			item        model.SyncQueueItem
			data        string
			createdAt   string
			lastAttempt sql.NullString
			errMsg      sql.NullString
		)
		err := rows.Scan(&item.ID, &item.TableName, &item.Operation, &data,
			&createdAt, &item.Attempts, &lastAttempt, &errMsg)
		if err != nil {
			return nil, err
		}
		item.Data = []byte(data)
		item.CreatedAt = parseTime(createdAt)
		if lastAttempt.Valid {
			t := parseTime(lastAttempt.String)
			item.LastAttempt = &t
		}
		item.ErrorMessage = errMsg.String
		queue = append(queue, item)
	}
	return queue, rows.Err()
}

// RemoveSyncQueueItem deletes one entry after confirmed remote success.
func (s *SQLiteStore) RemoveSyncQueueItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove sync queue item: %w", err)
	}
	return nil
}

// RecordSyncFailure increments attempts and stores the error; the item
// stays queued for the next eligible drain.
func (s *SQLiteStore) RecordSyncFailure(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET attempts = attempts + 1, last_attempt = ?, error_message = ?
		WHERE id = ?`,
		now(), errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// CountSyncQueue returns (pending, dead) item counts.
func (s *SQLiteStore) CountSyncQueue(ctx context.Context, maxAttempts int) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending, dead int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN attempts < ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN attempts >= ? THEN 1 ELSE 0 END), 0)
		FROM sync_queue`, maxAttempts, maxAttempts).Scan(&pending, &dead)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count sync queue: %w", err)
	}
	return pending, dead, nil
}

// PurgeDeadSyncItems removes dead entries whose last attempt predates
// the cutoff.
func (s *SQLiteStore) PurgeDeadSyncItems(ctx context.Context, maxAttempts int, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_queue
		WHERE attempts >= ? AND last_attempt IS NOT NULL AND last_attempt < ?`,
		maxAttempts, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to purge dead sync items: %w", err)
	}
	return res.RowsAffected()
}
