package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"township-pos-api/internal/model"
	"township-pos-api/internal/netmon"
	"township-pos-api/internal/remote"
	"township-pos-api/internal/repository"
)

// ConflictStrategy decides between local and server versions of an
// entity when the remote signals a conflict.
type ConflictStrategy string

const (
	// ClientWins keeps the local value.
	ClientWins ConflictStrategy = "client-wins"
	// ServerWins accepts the remote value.
	ServerWins ConflictStrategy = "server-wins"
	// MergeLatest picks whichever version carries the later timestamp.
	MergeLatest ConflictStrategy = "merge"
)

// OfflineManager layers optimism, rollback and conflict policy atop the
// sync engine. It is the engine's result handler: confirmed remote
// syncs settle the matching optimistic update, non-retryable failures
// trigger rollback.
type OfflineManager struct {
	store    repository.Store
	engine   *SyncEngine
	monitor  *netmon.Monitor
	strategy ConflictStrategy

	sub      *netmon.Subscription
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// NewOfflineManager creates a manager with the given conflict strategy
// (empty means client-wins).
func NewOfflineManager(store repository.Store, engine *SyncEngine, monitor *netmon.Monitor, strategy ConflictStrategy) *OfflineManager {
	if strategy == "" {
		strategy = ClientWins
	}
	return &OfflineManager{
		store:    store,
		engine:   engine,
		monitor:  monitor,
		strategy: strategy,
		stopCh:   make(chan struct{}),
	}
}

// Start subscribes to connectivity transitions.
func (m *OfflineManager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.sub = m.monitor.Subscribe()
	m.mu.Unlock()

	go m.run()
	log.Printf("[OfflineManager] Started - strategy: %s", m.strategy)
}

func (m *OfflineManager) run() {
	for {
		select {
		case ev := <-m.sub.C:
			if ev.Online && ev.WasOffline {
				if err := m.HandleBackOnline(context.Background()); err != nil {
					log.Printf("[OfflineManager] Failed to handle back online: %v", err)
				}
			}
		case <-m.stopCh:
			log.Printf("[OfflineManager] Stopped")
			return
		}
	}
}

// Stop releases the subscription.
func (m *OfflineManager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.sub != nil {
			m.sub.Unsubscribe()
		}
		close(m.stopCh)
		m.running = false
	})
}

// AddOptimisticUpdate records a pending update with enough rollback
// payload to undo it. id must match the mutation's sync id so the
// engine's outcome can be matched back.
func (m *OfflineManager) AddOptimisticUpdate(ctx context.Context, id, operation string, data, rollbackData interface{}) (*model.OptimisticUpdate, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize optimistic payload: %w", err)
	}

	var rollback json.RawMessage
	if rollbackData != nil {
		rollback, err = json.Marshal(rollbackData)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize rollback payload: %w", err)
		}
	}

	update := model.OptimisticUpdate{
		ID:           id,
		Operation:    operation,
		Data:         payload,
		RollbackData: rollback,
		Status:       model.OptimisticPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := m.store.AddOptimisticUpdate(ctx, update); err != nil {
		return nil, err
	}

	log.Printf("[OfflineManager] Added optimistic update: %s (%s)", id, operation)
	return &update, nil
}

// ConfirmOptimisticUpdate marks an update confirmed.
func (m *OfflineManager) ConfirmOptimisticUpdate(ctx context.Context, id string) error {
	return m.store.SetOptimisticStatus(ctx, id, model.OptimisticConfirmed)
}

// RollbackOptimisticUpdate reverses the local mutation and marks the
// update failed.
func (m *OfflineManager) RollbackOptimisticUpdate(ctx context.Context, id string) error {
	update, err := m.store.GetOptimisticUpdate(ctx, id)
	if err != nil {
		return err
	}
	if update == nil || len(update.RollbackData) == 0 {
		return nil
	}

	if err := m.applyRollback(ctx, update); err != nil {
		return fmt.Errorf("failed to rollback update %s: %w", id, err)
	}

	if err := m.store.SetOptimisticStatus(ctx, id, model.OptimisticFailed); err != nil {
		return err
	}

	log.Printf("[OfflineManager] Rolled back optimistic update: %s (%s)", id, update.Operation)
	return nil
}

// applyRollback undoes one mutation from its recorded inverse.
func (m *OfflineManager) applyRollback(ctx context.Context, update *model.OptimisticUpdate) error {
	switch update.Operation {
	case model.OpAddInventoryItem:
		// Remove the optimistically created row.
		var rb struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(update.RollbackData, &rb); err != nil {
			return err
		}
		err := m.store.DeleteInventoryItem(ctx, rb.ID)
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil
		}
		return err

	case model.OpUpdateInventoryItem:
		// Restore the pre-update snapshot.
		var prior model.InventoryItem
		if err := json.Unmarshal(update.RollbackData, &prior); err != nil {
			return err
		}
		_, err := m.store.UpdateInventoryItem(ctx, prior)
		return err

	case model.OpDeleteInventoryItem:
		// Re-insert the deleted row.
		var prior model.InventoryItem
		if err := json.Unmarshal(update.RollbackData, &prior); err != nil {
			return err
		}
		_, err := m.store.AddInventoryItem(ctx, model.InventoryInput{
			Name:     prior.Name,
			Price:    prior.Price,
			Quantity: prior.Quantity,
			Category: prior.Category,
			Barcode:  prior.Barcode,
		})
		return err

	case model.OpProcessSale:
		// Restore the decremented inventory and delete the sale.
		var sale model.SaleRecord
		if err := json.Unmarshal(update.RollbackData, &sale); err != nil {
			return err
		}
		return m.store.RollbackSale(ctx, sale)

	default:
		log.Printf("[OfflineManager] Unknown rollback operation: %s", update.Operation)
		return nil
	}
}

// HandleBackOnline converts pending optimistic updates into queue
// entries, runs a full drain, then clears confirmed entries.
func (m *OfflineManager) HandleBackOnline(ctx context.Context) error {
	log.Printf("[OfflineManager] Back online - processing optimistic updates and syncing")

	if err := m.queuePendingUpdates(ctx); err != nil {
		return err
	}

	if err := m.engine.SyncAll(ctx); err != nil && err != ErrSyncInProgress {
		return err
	}

	cleared, err := m.store.DeleteOptimisticUpdates(ctx, model.OptimisticConfirmed)
	if err != nil {
		return err
	}
	if cleared > 0 {
		log.Printf("[OfflineManager] Cleared %d confirmed updates", cleared)
	}
	return nil
}

// queuePendingUpdates enqueues pending optimistic updates that have no
// queue entry yet. Normal mutations enqueue immediately; this catches
// anything recorded while a queue write failed or was interrupted.
func (m *OfflineManager) queuePendingUpdates(ctx context.Context) error {
	pending, err := m.store.GetOptimisticUpdates(ctx, model.OptimisticPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	queue, err := m.store.GetSyncQueue(ctx)
	if err != nil {
		return err
	}
	queued := make(map[string]struct{}, len(queue))
	for _, item := range queue {
		if id := payloadSyncID(item.Data); id != "" {
			queued[id] = struct{}{}
		}
	}

	converted := 0
	for _, u := range pending {
		if _, ok := queued[u.ID]; ok {
			continue
		}
		table, op, err := queueTarget(u.Operation)
		if err != nil {
			log.Printf("[OfflineManager] Skipping update %s: %v", u.ID, err)
			continue
		}
		if _, err := m.store.AddToSyncQueue(ctx, table, op, u.Data); err != nil {
			return err
		}
		converted++
	}

	log.Printf("[OfflineManager] Processing %d pending updates (%d newly queued)", len(pending), converted)
	return nil
}

// queueTarget maps an optimistic operation to its queue table/operation.
func queueTarget(operation string) (string, string, error) {
	switch operation {
	case model.OpAddInventoryItem:
		return model.TableInventory, model.OpCreate, nil
	case model.OpUpdateInventoryItem:
		return model.TableInventory, model.OpUpdate, nil
	case model.OpDeleteInventoryItem:
		return model.TableInventory, model.OpDelete, nil
	case model.OpProcessSale:
		return model.TableSales, model.OpCreate, nil
	default:
		return "", "", fmt.Errorf("unknown sync operation: %s", operation)
	}
}

// payloadSyncID pulls the mutation id out of a queue payload.
func payloadSyncID(data json.RawMessage) string {
	var probe struct {
		SyncID string `json:"sync_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.SyncID
}

// HandleSyncSuccess settles the matching optimistic update.
func (m *OfflineManager) HandleSyncSuccess(ctx context.Context, item model.SyncQueueItem) {
	id := payloadSyncID(item.Data)
	if id == "" {
		return
	}
	if err := m.ConfirmOptimisticUpdate(ctx, id); err != nil {
		log.Printf("[OfflineManager] Failed to confirm update %s: %v", id, err)
	}
}

// HandleSyncFailure rolls back when the error is classified
// non-retryable; retryable failures stay queued untouched.
func (m *OfflineManager) HandleSyncFailure(ctx context.Context, item model.SyncQueueItem, err error) {
	if !ShouldRollback(err) {
		return
	}

	// Propagation is abandoned for a non-retryable failure; the local
	// state is reverted instead of retried.
	if rerr := m.store.RemoveSyncQueueItem(ctx, item.ID); rerr != nil {
		log.Printf("[OfflineManager] Failed to dequeue item %d: %v", item.ID, rerr)
	}

	id := payloadSyncID(item.Data)
	if id == "" {
		return
	}
	if rerr := m.RollbackOptimisticUpdate(ctx, id); rerr != nil {
		log.Printf("[OfflineManager] %v", rerr)
	}
}

// ShouldRollback classifies an error as rollback-worthy. Client errors
// (400, 404, 409) roll back; timeouts and server errors stay queued.
func ShouldRollback(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case 400, 404, 409:
			return true
		}
		return false
	}

	// Errors rehydrated from the queue's stored error_message lose
	// their type; fall back to the embedded status code.
	msg := err.Error()
	return strings.Contains(msg, "400") || strings.Contains(msg, "404") || strings.Contains(msg, "409")
}

// ResolveConflict applies the configured strategy to a local/server
// pair. Detection is the caller's concern; the drain never invokes this.
func (m *OfflineManager) ResolveConflict(local, server json.RawMessage) json.RawMessage {
	switch m.strategy {
	case ServerWins:
		return server
	case MergeLatest:
		if entityTimestamp(server).After(entityTimestamp(local)) {
			return server
		}
		return local
	default: // client-wins
		return local
	}
}

// entityTimestamp reads updated_at (falling back to timestamp) from an
// entity payload.
func entityTimestamp(data json.RawMessage) time.Time {
	var probe struct {
		UpdatedAt *time.Time `json:"updated_at"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return time.Time{}
	}
	if probe.UpdatedAt != nil {
		return *probe.UpdatedAt
	}
	if probe.Timestamp != nil {
		return *probe.Timestamp
	}
	return time.Time{}
}

// PendingUpdatesCount counts unsettled optimistic updates.
func (m *OfflineManager) PendingUpdatesCount(ctx context.Context) (int, error) {
	return m.store.CountOptimisticUpdates(ctx, model.OptimisticPending)
}

// FailedUpdatesCount counts rolled-back optimistic updates.
func (m *OfflineManager) FailedUpdatesCount(ctx context.Context) (int, error) {
	return m.store.CountOptimisticUpdates(ctx, model.OptimisticFailed)
}

// ClearFailedUpdates drops rolled-back updates.
func (m *OfflineManager) ClearFailedUpdates(ctx context.Context) (int64, error) {
	return m.store.DeleteOptimisticUpdates(ctx, model.OptimisticFailed)
}
