package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"township-pos-api/internal/model"
)

// Sentinel errors surfaced by the local store.
var (
	// ErrItemNotFound is returned when an inventory id is unknown.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientStock is returned when a sale requests more than
	// the on-hand quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InventoryStore defines inventory data access methods.
type InventoryStore interface {
	AddInventoryItem(ctx context.Context, in model.InventoryInput) (*model.InventoryItem, error)
	GetInventory(ctx context.Context) ([]model.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (*model.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id int64) error
	MarkInventorySynced(ctx context.Context, id int64) error
}

// SalesStore defines sale processing and history access.
type SalesStore interface {
	// ProcessSale atomically decrements inventory, inserts the sale
	// record and recomputes the credit snapshot. All three writes
	// succeed or none do.
	ProcessSale(ctx context.Context, req model.SaleRequest) (*model.SaleRecord, error)

	// RollbackSale reverses a processed sale: restores the decremented
	// quantity, deletes the sale row and recomputes the snapshot.
	RollbackSale(ctx context.Context, sale model.SaleRecord) error

	GetSalesHistory(ctx context.Context, limit int) ([]model.SaleRecord, error)
	MarkSaleSynced(ctx context.Context, id int64) error
}

// CreditStore defines credit snapshot access.
type CreditStore interface {
	GetCreditScore(ctx context.Context) (*model.CreditScore, error)
}

// SyncQueueStore defines the ordered, durable record of pending
// outbound mutations.
type SyncQueueStore interface {
	// AddToSyncQueue appends a mutation with attempts=0. Entries are
	// never deduplicated.
	AddToSyncQueue(ctx context.Context, tableName, operation string, data interface{}) (*model.SyncQueueItem, error)

	// GetSyncQueue returns every queued item oldest-first without
	// removing anything.
	GetSyncQueue(ctx context.Context) ([]model.SyncQueueItem, error)

	RemoveSyncQueueItem(ctx context.Context, id int64) error

	// RecordSyncFailure increments attempts and stores the last attempt
	// time and error message; the item stays queued.
	RecordSyncFailure(ctx context.Context, id int64, errMsg string) error

	// CountSyncQueue returns (pending, dead) where dead means attempts
	// reached maxAttempts.
	CountSyncQueue(ctx context.Context, maxAttempts int) (int, int, error)

	// PurgeDeadSyncItems removes dead items whose last attempt is older
	// than the cutoff. Returns the number removed.
	PurgeDeadSyncItems(ctx context.Context, maxAttempts int, cutoff time.Time) (int64, error)
}

// OptimisticStore persists the offline manager's update log.
type OptimisticStore interface {
	AddOptimisticUpdate(ctx context.Context, u model.OptimisticUpdate) error
	GetOptimisticUpdates(ctx context.Context, status string) ([]model.OptimisticUpdate, error)
	GetOptimisticUpdate(ctx context.Context, id string) (*model.OptimisticUpdate, error)
	SetOptimisticStatus(ctx context.Context, id, status string) error
	CountOptimisticUpdates(ctx context.Context, status string) (int, error)
	DeleteOptimisticUpdates(ctx context.Context, status string) (int64, error)
	PurgeSettledOptimisticUpdates(ctx context.Context, cutoff time.Time) (int64, error)
}

// SettingsStore is a small durable key/value space (last sync time etc).
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store is the full local-store surface. The single source of truth:
// the sync queue and optimistic log are derived bookkeeping over it.
type Store interface {
	InventoryStore
	SalesStore
	CreditStore
	SyncQueueStore
	OptimisticStore
	SettingsStore
	Close() error
}

// marshalPayload serializes a queue/optimistic payload.
func marshalPayload(data interface{}) (json.RawMessage, error) {
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return b, nil
}
