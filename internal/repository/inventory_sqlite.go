package repository

import (
	"context"
	"database/sql"
	"fmt"

	"township-pos-api/internal/model"
	"township-pos-api/pkg/uid"
)

// AddInventoryItem validates nothing itself (the service layer does);
// it inserts the row and returns the stored record with synced=false.
func (s *SQLiteStore) AddInventoryItem(ctx context.Context, in model.InventoryInput) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := in.Category
	if category == "" {
		category = "Other"
	}

	ts := now()
	syncID := uid.New()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (name, price, quantity, category, barcode, created_at, updated_at, synced, sync_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		in.Name, in.Price, in.Quantity, category, in.Barcode, ts, ts, syncID)
	if err != nil {
		return nil, fmt.Errorf("failed to add inventory item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted id: %w", err)
	}

	return &model.InventoryItem{
		ID:        id,
		Name:      in.Name,
		Price:     in.Price,
		Quantity:  in.Quantity,
		Category:  category,
		Barcode:   in.Barcode,
		CreatedAt: parseTime(ts),
		UpdatedAt: parseTime(ts),
		Synced:    false,
		SyncID:    syncID,
	}, nil
}

// GetInventory returns all items ordered by name.
func (s *SQLiteStore) GetInventory(ctx context.Context) ([]model.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, quantity, category, barcode, created_at, updated_at, synced, sync_id
		FROM inventory ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetInventoryItem returns one item or ErrItemNotFound.
func (s *SQLiteStore) GetInventoryItem(ctx context.Context, id int64) (*model.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getInventoryItem(ctx, s.db, id)
}

// querier lets lookups run against either the pool or a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLiteStore) getInventoryItem(ctx context.Context, q querier, id int64) (*model.InventoryItem, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, price, quantity, category, barcode, created_at, updated_at, synced, sync_id
		FROM inventory WHERE id = ?`, id)

	item, err := scanInventoryItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// UpdateInventoryItem rewrites the mutable fields, bumps updated_at and
// clears the synced flag.
func (s *SQLiteStore) UpdateInventoryItem(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = ?, price = ?, quantity = ?, category = ?, barcode = ?, updated_at = ?, synced = 0, sync_id = ?
		WHERE id = ?`,
		item.Name, item.Price, item.Quantity, item.Category, item.Barcode, ts, item.SyncID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrItemNotFound
	}

	item.UpdatedAt = parseTime(ts)
	item.Synced = false
	return &item, nil
}

// DeleteInventoryItem removes the row. The caller queues the delete for
// remote propagation.
func (s *SQLiteStore) DeleteInventoryItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM inventory WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// MarkInventorySynced sets the synced flag after a confirmed remote write.
func (s *SQLiteStore) MarkInventorySynced(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE inventory SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark inventory synced: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInventoryItem(sc scanner) (*model.InventoryItem, error) {
	var (
		item      model.InventoryItem
		category  sql.NullString
		barcode   sql.NullString
		syncID    sql.NullString
		createdAt string
		updatedAt string
		synced    int
	)

	err := sc.Scan(&item.ID, &item.Name, &item.Price, &item.Quantity,
		&category, &barcode, &createdAt, &updatedAt, &synced, &syncID)
	if err != nil {
		return nil, err
	}

	item.Category = category.String
	item.Barcode = barcode.String
	item.SyncID = syncID.String
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	item.Synced = synced != 0
	return &item, nil
}
