package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"township-pos-api/internal/model"
)

// AddOptimisticUpdate appends one row to the optimistic-update log.
func (s *SQLiteStore) AddOptimisticUpdate(ctx context.Context, u model.OptimisticUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rollback interface{}
	if len(u.RollbackData) > 0 {
		rollback = string(u.RollbackData)
	}

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO optimistic_updates (id, operation, data, rollback_data, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Operation, string(u.Data), rollback, u.Status,
		createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to add optimistic update: %w", err)
	}
	return nil
}

// GetOptimisticUpdates returns updates with the given status, oldest
// first. An empty status returns everything.
func (s *SQLiteStore) GetOptimisticUpdates(ctx context.Context, status string) ([]model.OptimisticUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, operation, data, rollback_data, status, created_at
		FROM optimistic_updates`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get optimistic updates: %w", err)
	}
	defer rows.Close()

	var updates []model.OptimisticUpdate
	for rows.Next() {
		u, err := scanOptimisticUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *u)
	}
	return updates, rows.Err()
}

// GetOptimisticUpdate returns one update by id, or nil if absent.
func (s *SQLiteStore) GetOptimisticUpdate(ctx context.Context, id string) (*model.OptimisticUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, operation, data, rollback_data, status, created_at
		FROM optimistic_updates WHERE id = ?`, id)

	u, err := scanOptimisticUpdate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get optimistic update: %w", err)
	}
	return u, nil
}

// SetOptimisticStatus transitions one update (pending -> confirmed/failed).
func (s *SQLiteStore) SetOptimisticStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE optimistic_updates SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to set optimistic status: %w", err)
	}
	return nil
}

// CountOptimisticUpdates counts updates with the given status.
func (s *SQLiteStore) CountOptimisticUpdates(ctx context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM optimistic_updates WHERE status = ?", status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count optimistic updates: %w", err)
	}
	return count, nil
}

// DeleteOptimisticUpdates removes all updates with the given status.
func (s *SQLiteStore) DeleteOptimisticUpdates(ctx context.Context, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM optimistic_updates WHERE status = ?", status)
	if err != nil {
		return 0, fmt.Errorf("failed to delete optimistic updates: %w", err)
	}
	return res.RowsAffected()
}

// PurgeSettledOptimisticUpdates removes confirmed/failed updates older
// than the cutoff.
func (s *SQLiteStore) PurgeSettledOptimisticUpdates(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM optimistic_updates
		WHERE status IN (?, ?) AND created_at < ?`,
		model.OptimisticConfirmed, model.OptimisticFailed,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to purge settled optimistic updates: %w", err)
	}
	return res.RowsAffected()
}

func scanOptimisticUpdate(sc scanner) (*model.OptimisticUpdate, error) {
	var (
		u         model.OptimisticUpdate
		data      string
		rollback  sql.NullString
		createdAt string
	)
	err := sc.Scan(&u.ID, &u.Operation, &data, &rollback, &u.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	u.Data = []byte(data)
	if rollback.Valid {
		u.RollbackData = []byte(rollback.String)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}
