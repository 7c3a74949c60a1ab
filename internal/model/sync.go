package model

import (
	"encoding/json"
	"time"
)

// Sync queue operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Tables a queued mutation may target.
const (
	TableInventory = "inventory"
	TableSales     = "sales"
)

// SyncQueueItem is a pending outbound mutation. Items are drained
// oldest-first; an item records intent to propagate a local write that
// has already committed, never intent to mutate locally.
type SyncQueueItem struct {
	ID           int64           `json:"id"`
	TableName    string          `json:"table_name"`
	Operation    string          `json:"operation"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
	Attempts     int             `json:"attempts"`
	LastAttempt  *time.Time      `json:"last_attempt,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Optimistic update statuses.
const (
	OptimisticPending   = "pending"
	OptimisticConfirmed = "confirmed"
	OptimisticFailed    = "failed"
)

// Optimistic update operations.
const (
	OpAddInventoryItem    = "ADD_INVENTORY_ITEM"
	OpUpdateInventoryItem = "UPDATE_INVENTORY_ITEM"
	OpDeleteInventoryItem = "DELETE_INVENTORY_ITEM"
	OpProcessSale         = "PROCESS_SALE"
)

// OptimisticUpdate records a local mutation applied ahead of remote
// confirmation, with enough rollback payload to undo it.
type OptimisticUpdate struct {
	ID           string          `json:"id"`
	Operation    string          `json:"operation"`
	Data         json.RawMessage `json:"data"`
	RollbackData json.RawMessage `json:"rollback_data,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SyncStatus is the engine's reportable state.
type SyncStatus struct {
	IsOnline     bool       `json:"is_online"`
	IsSyncing    bool       `json:"is_syncing"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	PendingCount int        `json:"pending_count"`
	DeadCount    int        `json:"dead_count"`
}
