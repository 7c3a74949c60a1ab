package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"township-pos-api/internal/model"
	"township-pos-api/internal/remote"
	"township-pos-api/internal/repository"
)

func newTestManager(t *testing.T, store *repository.SQLiteStore, strategy ConflictStrategy) *OfflineManager {
	t.Helper()

	monitor := newTestMonitor(true)
	engine := NewSyncEngine(store, newFakeRemote(), monitor, SyncConfig{RetryDelay: time.Millisecond})
	m := NewOfflineManager(store, engine, monitor, strategy)
	engine.SetResultHandler(m)
	return m
}

func TestShouldRollback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad request", &remote.StatusError{Code: 400, Body: "invalid"}, true},
		{"not found", &remote.StatusError{Code: 404, Body: "gone"}, true},
		{"conflict", &remote.StatusError{Code: 409, Body: "stale"}, true},
		{"server error", &remote.StatusError{Code: 500, Body: "boom"}, false},
		{"bad gateway", &remote.StatusError{Code: 502, Body: ""}, false},
		{"wrapped client error", fmt.Errorf("sync: %w", &remote.StatusError{Code: 404}), true},
		{"untyped with code", errors.New("HTTP 400: rejected"), true},
		{"untyped server error", errors.New("HTTP 500: boom"), false},
		{"network timeout", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRollback(tt.err); got != tt.want {
				t.Errorf("ShouldRollback(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRollbackAddInventoryItem(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}

	if _, err := manager.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem,
		item, map[string]int64{"id": item.ID}); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}

	if err := manager.RollbackOptimisticUpdate(ctx, item.SyncID); err != nil {
		t.Fatalf("RollbackOptimisticUpdate: %v", err)
	}

	if _, err := store.GetInventoryItem(ctx, item.ID); !errors.Is(err, repository.ErrItemNotFound) {
		t.Errorf("item still present after rollback: %v", err)
	}

	update, err := store.GetOptimisticUpdate(ctx, item.SyncID)
	if err != nil {
		t.Fatalf("GetOptimisticUpdate: %v", err)
	}
	if update.Status != model.OptimisticFailed {
		t.Errorf("status = %q, want failed", update.Status)
	}
}

func TestRollbackUpdateInventoryItem(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	prior := *item

	item.Price = 99
	updated, err := store.UpdateInventoryItem(ctx, *item)
	if err != nil {
		t.Fatalf("UpdateInventoryItem: %v", err)
	}

	if _, err := manager.AddOptimisticUpdate(ctx, updated.SyncID, model.OpUpdateInventoryItem,
		updated, prior); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}

	if err := manager.RollbackOptimisticUpdate(ctx, updated.SyncID); err != nil {
		t.Fatalf("RollbackOptimisticUpdate: %v", err)
	}

	got, err := store.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if got.Price != 15 {
		t.Errorf("price after rollback = %v, want restored 15", got.Price)
	}
}

func TestRollbackDeleteInventoryItem(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}

	if err := store.DeleteInventoryItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteInventoryItem: %v", err)
	}

	syncID := "delete-mutation-1"
	if _, err := manager.AddOptimisticUpdate(ctx, syncID, model.OpDeleteInventoryItem,
		map[string]interface{}{"id": item.ID, "sync_id": syncID}, item); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}

	if err := manager.RollbackOptimisticUpdate(ctx, syncID); err != nil {
		t.Fatalf("RollbackOptimisticUpdate: %v", err)
	}

	items, err := store.GetInventory(ctx)
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Bread" || items[0].Quantity != 20 {
		t.Errorf("inventory after rollback = %+v, want restored Bread", items)
	}
}

func TestRollbackProcessSale(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}

	sale, err := store.ProcessSale(ctx, model.SaleRequest{
		ItemID: item.ID, Quantity: 3, PaymentMethod: model.PaymentCash, AmountReceived: 50,
	})
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	if _, err := manager.AddOptimisticUpdate(ctx, sale.SyncID, model.OpProcessSale,
		sale, sale); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}

	if err := manager.RollbackOptimisticUpdate(ctx, sale.SyncID); err != nil {
		t.Fatalf("RollbackOptimisticUpdate: %v", err)
	}

	got, err := store.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if got.Quantity != 20 {
		t.Errorf("quantity after sale rollback = %d, want 20", got.Quantity)
	}
}

func TestRollbackWithoutDataIsNoop(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	if _, err := manager.AddOptimisticUpdate(ctx, "no-rollback", model.OpAddInventoryItem,
		map[string]string{"name": "x"}, nil); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}

	if err := manager.RollbackOptimisticUpdate(ctx, "no-rollback"); err != nil {
		t.Errorf("rollback without data should be a no-op, got %v", err)
	}

	update, err := store.GetOptimisticUpdate(ctx, "no-rollback")
	if err != nil {
		t.Fatalf("GetOptimisticUpdate: %v", err)
	}
	if update.Status != model.OptimisticPending {
		t.Errorf("status = %q, want still pending", update.Status)
	}
}

func TestHandleSyncFailureRollsBackClientErrors(t *testing.T) {
	store := newTestStore(t)
	remoteAPI := newFakeRemote()
	remoteAPI.failAll = &remote.StatusError{Code: 400, Body: "rejected"}
	monitor := newTestMonitor(true)
	engine := NewSyncEngine(store, remoteAPI, monitor, SyncConfig{RetryDelay: time.Millisecond})
	manager := NewOfflineManager(store, engine, monitor, "")
	engine.SetResultHandler(manager)
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := manager.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem,
		item, map[string]int64{"id": item.ID}); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}
	if _, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, item); err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}

	if err := engine.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	// The rejected mutation is dequeued, its local write reverted.
	queue, err := store.GetSyncQueue(ctx)
	if err != nil {
		t.Fatalf("GetSyncQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("queue length = %d, want 0 after rollback", len(queue))
	}
	if _, err := store.GetInventoryItem(ctx, item.ID); !errors.Is(err, repository.ErrItemNotFound) {
		t.Errorf("item survived rollback: %v", err)
	}

	failed, err := manager.FailedUpdatesCount(ctx)
	if err != nil {
		t.Fatalf("FailedUpdatesCount: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed updates = %d, want 1", failed)
	}
}

func TestHandleSyncFailureKeepsRetryableQueued(t *testing.T) {
	store := newTestStore(t)
	remoteAPI := newFakeRemote()
	remoteAPI.failAll = &remote.StatusError{Code: 500, Body: "boom"}
	monitor := newTestMonitor(true)
	engine := NewSyncEngine(store, remoteAPI, monitor, SyncConfig{RetryDelay: time.Millisecond})
	manager := NewOfflineManager(store, engine, monitor, "")
	engine.SetResultHandler(manager)
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := manager.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem,
		item, map[string]int64{"id": item.ID}); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}
	if _, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, item); err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}

	if err := engine.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	queue, err := store.GetSyncQueue(ctx)
	if err != nil {
		t.Fatalf("GetSyncQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want item kept for retry", len(queue))
	}
	if _, err := store.GetInventoryItem(ctx, item.ID); err != nil {
		t.Errorf("item should survive a retryable failure: %v", err)
	}
	pending, err := manager.PendingUpdatesCount(ctx)
	if err != nil {
		t.Fatalf("PendingUpdatesCount: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending updates = %d, want 1", pending)
	}
}

func TestHandleBackOnlineDrainsAndSettles(t *testing.T) {
	store := newTestStore(t)
	remoteAPI := newFakeRemote()
	monitor := newTestMonitor(true)
	engine := NewSyncEngine(store, remoteAPI, monitor, SyncConfig{RetryDelay: time.Millisecond})
	manager := NewOfflineManager(store, engine, monitor, "")
	engine.SetResultHandler(manager)
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := manager.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem,
		item, map[string]int64{"id": item.ID}); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}
	// No queue entry: HandleBackOnline must create one from the pending
	// update, drain it, and clear the confirmed record.

	if err := manager.HandleBackOnline(ctx); err != nil {
		t.Fatalf("HandleBackOnline: %v", err)
	}

	if remoteAPI.callCount() != 1 {
		t.Errorf("remote calls = %d, want 1", remoteAPI.callCount())
	}
	queue, err := store.GetSyncQueue(ctx)
	if err != nil {
		t.Fatalf("GetSyncQueue: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(queue))
	}
	pending, err := manager.PendingUpdatesCount(ctx)
	if err != nil {
		t.Fatalf("PendingUpdatesCount: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending updates = %d, want 0", pending)
	}
}

func TestHandleBackOnlineDeduplicatesQueueEntries(t *testing.T) {
	store := newTestStore(t)
	remoteAPI := newFakeRemote()
	monitor := newTestMonitor(true)
	engine := NewSyncEngine(store, remoteAPI, monitor, SyncConfig{RetryDelay: time.Millisecond})
	manager := NewOfflineManager(store, engine, monitor, "")
	engine.SetResultHandler(manager)
	ctx := context.Background()

	item, err := store.AddInventoryItem(ctx, model.InventoryInput{
		Name: "Bread", Price: 15, Quantity: 20, Category: "Food & Drinks",
	})
	if err != nil {
		t.Fatalf("AddInventoryItem: %v", err)
	}
	if _, err := manager.AddOptimisticUpdate(ctx, item.SyncID, model.OpAddInventoryItem,
		item, map[string]int64{"id": item.ID}); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}
	// The mutation already enqueued itself; reconnect must not enqueue a
	// second copy.
	if _, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, item); err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}

	if err := manager.HandleBackOnline(ctx); err != nil {
		t.Fatalf("HandleBackOnline: %v", err)
	}

	if remoteAPI.callCount() != 1 {
		t.Errorf("remote calls = %d, want exactly 1 (no duplicate)", remoteAPI.callCount())
	}
}

func TestResolveConflict(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	local, _ := json.Marshal(map[string]interface{}{"name": "local", "updated_at": older})
	server, _ := json.Marshal(map[string]interface{}{"name": "server", "updated_at": newer})

	tests := []struct {
		strategy ConflictStrategy
		local    json.RawMessage
		server   json.RawMessage
		want     json.RawMessage
	}{
		{ClientWins, local, server, local},
		{ServerWins, local, server, server},
		{MergeLatest, local, server, server},
		{MergeLatest, server, local, server},
	}

	store := newTestStore(t)
	for _, tt := range tests {
		manager := newTestManager(t, store, tt.strategy)
		got := manager.ResolveConflict(tt.local, tt.server)
		if string(got) != string(tt.want) {
			t.Errorf("strategy %s: got %s, want %s", tt.strategy, got, tt.want)
		}
	}
}

func TestResolveConflictMergeFallsBackToLocal(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, MergeLatest)

	// Equal timestamps keep the local version.
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local, _ := json.Marshal(map[string]interface{}{"name": "local", "updated_at": ts})
	server, _ := json.Marshal(map[string]interface{}{"name": "server", "updated_at": ts})

	if got := manager.ResolveConflict(local, server); string(got) != string(local) {
		t.Errorf("got %s, want local on tie", got)
	}
}

func TestClearFailedUpdates(t *testing.T) {
	store := newTestStore(t)
	manager := newTestManager(t, store, "")
	ctx := context.Background()

	if _, err := manager.AddOptimisticUpdate(ctx, "u1", model.OpAddInventoryItem,
		map[string]string{"name": "a"}, nil); err != nil {
		t.Fatalf("AddOptimisticUpdate: %v", err)
	}
	if err := store.SetOptimisticStatus(ctx, "u1", model.OptimisticFailed); err != nil {
		t.Fatalf("SetOptimisticStatus: %v", err)
	}

	cleared, err := manager.ClearFailedUpdates(ctx)
	if err != nil {
		t.Fatalf("ClearFailedUpdates: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}
}
