package repository

import (
	"context"
	"database/sql"
	"fmt"

	"township-pos-api/internal/model"
	"township-pos-api/pkg/uid"
)

// ProcessSale looks up the referenced item, fails with ErrItemNotFound
// or ErrInsufficientStock, and otherwise decrements inventory, inserts
// the sale record and recomputes the credit snapshot in one transaction.
func (s *SQLiteStore) ProcessSale(ctx context.Context, req model.SaleRequest) (*model.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getInventoryItem(ctx, tx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if item.Quantity < req.Quantity {
		return nil, ErrInsufficientStock
	}

	total := item.Price * float64(req.Quantity)
	amountReceived := req.AmountReceived
	if amountReceived == 0 {
		amountReceived = total
	}
	change := 0.0
	if req.PaymentMethod == model.PaymentCash {
		change = amountReceived - total
	}

	ts := now()
	syncID := uid.New()

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?, updated_at = ?, synced = 0
		WHERE id = ?`,
		req.Quantity, ts, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement inventory: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sales (item_name, item_id, quantity, total, payment_method, amount_received, change_given, timestamp, synced, sync_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		item.Name, req.ItemID, req.Quantity, total, req.PaymentMethod, amountReceived, change, ts, syncID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	saleID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get sale id: %w", err)
	}

	if err := s.recomputeCreditScore(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	return &model.SaleRecord{
		ID:             saleID,
		ItemName:       item.Name,
		ItemID:         req.ItemID,
		Quantity:       req.Quantity,
		Total:          total,
		PaymentMethod:  req.PaymentMethod,
		AmountReceived: amountReceived,
		ChangeGiven:    change,
		Timestamp:      parseTime(ts),
		Synced:         false,
		SyncID:         syncID,
	}, nil
}

// RollbackSale is the transactional inverse of ProcessSale: the item's
// quantity is restored, the sale row deleted and the snapshot recomputed.
func (s *SQLiteStore) RollbackSale(ctx context.Context, sale model.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM sales WHERE id = ?", sale.ID)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Already rolled back.
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity + ?, updated_at = ?, synced = 0
		WHERE id = ?`,
		sale.Quantity, now(), sale.ItemID)
	if err != nil {
		return fmt.Errorf("failed to restore inventory: %w", err)
	}

	if err := s.recomputeCreditScore(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale rollback: %w", err)
	}
	return nil
}

// GetSalesHistory returns sales newest-first, capped at limit.
func (s *SQLiteStore) GetSalesHistory(ctx context.Context, limit int) ([]model.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, item_id, quantity, total, payment_method, amount_received, change_given, timestamp, synced, sync_id
		FROM sales ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales history: %w", err)
	}
	defer rows.Close()

	var sales []model.SaleRecord
	for rows.Next() {
		var (
			sale     model.SaleRecord
			itemID   sql.NullInt64
			syncID   sql.NullString
			ts       string
			received sql.NullFloat64
			synced   int
		)
		err := rows.Scan(&sale.ID, &sale.ItemName, &itemID, &sale.Quantity, &sale.Total,
			&sale.PaymentMethod, &received, &sale.ChangeGiven, &ts, &synced, &syncID)
		if err != nil {
			return nil, err
		}
		sale.ItemID = itemID.Int64
		sale.AmountReceived = received.Float64
		sale.Timestamp = parseTime(ts)
		sale.Synced = synced != 0
		sale.SyncID = syncID.String
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// MarkSaleSynced sets the synced flag after a confirmed remote write.
func (s *SQLiteStore) MarkSaleSynced(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE sales SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark sale synced: %w", err)
	}
	return nil
}

// execer lets the recompute run inside a transaction.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// recomputeCreditScore rederives the singleton snapshot from the sales
// table. Called inside every transaction that touches sales.
func (s *SQLiteStore) recomputeCreditScore(ctx context.Context, q execer) error {
	var (
		totalSales       float64
		transactionCount int
		digitalCount     int
		activeDays       int
	)

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0), COUNT(*),
		       COALESCE(SUM(CASE WHEN payment_method != 'cash' THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT date(timestamp))
		FROM sales`).Scan(&totalSales, &transactionCount, &digitalCount, &activeDays)
	if err != nil {
		return fmt.Errorf("failed to aggregate sales: %w", err)
	}

	avg := 0.0
	digitalAdoption := 0.0
	if transactionCount > 0 {
		avg = totalSales / float64(transactionCount)
		digitalAdoption = float64(digitalCount) / float64(transactionCount) * 100
	}

	score := model.ComputeScore(totalSales, transactionCount)

	_, err = q.ExecContext(ctx, `
		UPDATE credit_score
		SET score = ?, total_sales = ?, transaction_count = ?, avg_transaction = ?,
		    digital_adoption = ?, active_days = ?, updated_at = ?, synced = 0
		WHERE id = 1`,
		score, totalSales, transactionCount, avg, digitalAdoption, activeDays, now())
	if err != nil {
		return fmt.Errorf("failed to update credit score: %w", err)
	}
	return nil
}

// GetCreditScore reads the singleton snapshot.
func (s *SQLiteStore) GetCreditScore(ctx context.Context) (*model.CreditScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cs        model.CreditScore
		updatedAt string
		synced    int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, score, total_sales, transaction_count, avg_transaction, digital_adoption, active_days, updated_at, synced
		FROM credit_score WHERE id = 1`).
		Scan(&cs.ID, &cs.ShopID, &cs.Score, &cs.TotalSales, &cs.TransactionCount,
			&cs.AvgTransaction, &cs.DigitalAdoption, &cs.ActiveDays, &updatedAt, &synced)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit score: %w", err)
	}

	cs.UpdatedAt = parseTime(updatedAt)
	cs.Synced = synced != 0
	return &cs, nil
}
