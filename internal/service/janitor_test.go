package service

import (
	"context"
	"testing"
	"time"

	"township-pos-api/internal/model"
)

func TestJanitorRunNow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// One dead queue item, one live.
	dead, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, map[string]string{"name": "dead"})
	if err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.RecordSyncFailure(ctx, dead.ID, "HTTP 500"); err != nil {
			t.Fatalf("RecordSyncFailure: %v", err)
		}
	}
	if _, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, map[string]string{"name": "live"}); err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}

	// One settled optimistic update, one pending.
	for _, u := range []model.OptimisticUpdate{
		{ID: "settled", Operation: model.OpAddInventoryItem, Data: []byte(`{}`), Status: model.OptimisticConfirmed, CreatedAt: time.Now()},
		{ID: "open", Operation: model.OpAddInventoryItem, Data: []byte(`{}`), Status: model.OptimisticPending, CreatedAt: time.Now()},
	} {
		if err := store.AddOptimisticUpdate(ctx, u); err != nil {
			t.Fatalf("AddOptimisticUpdate: %v", err)
		}
	}

	j := NewJanitor(store, JanitorConfig{
		MaxAttempts:   3,
		DeadRetention: -time.Minute, // cutoff in the future, everything dead is stale
	})

	purgedDead, purgedSettled, err := j.RunNow()
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if purgedDead != 1 {
		t.Errorf("purged dead = %d, want 1", purgedDead)
	}
	if purgedSettled != 1 {
		t.Errorf("purged settled = %d, want 1", purgedSettled)
	}

	queue, err := store.GetSyncQueue(ctx)
	if err != nil {
		t.Fatalf("GetSyncQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Errorf("queue = %d entries, want the live one", len(queue))
	}
	pending, err := store.CountOptimisticUpdates(ctx, model.OptimisticPending)
	if err != nil {
		t.Fatalf("CountOptimisticUpdates: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending updates = %d, want 1", pending)
	}
}

func TestJanitorKeepsRecentDeadItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dead, err := store.AddToSyncQueue(ctx, model.TableInventory, model.OpCreate, map[string]string{"name": "dead"})
	if err != nil {
		t.Fatalf("AddToSyncQueue: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.RecordSyncFailure(ctx, dead.ID, "HTTP 500"); err != nil {
			t.Fatalf("RecordSyncFailure: %v", err)
		}
	}

	// Retention window still open; the dead item stays for inspection.
	j := NewJanitor(store, JanitorConfig{MaxAttempts: 3, DeadRetention: time.Hour})

	purgedDead, _, err := j.RunNow()
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if purgedDead != 0 {
		t.Errorf("purged dead = %d, want 0 inside retention", purgedDead)
	}
}
