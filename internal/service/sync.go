package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"township-pos-api/internal/model"
	"township-pos-api/internal/netmon"
	"township-pos-api/internal/repository"
)

// settingLastSyncTime is the settings key holding the last drain time.
const settingLastSyncTime = "last_sync_time"

// Fast-fail sentinels for SyncAll.
var (
	ErrOffline        = errors.New("cannot sync: offline")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// RemoteAPI is the surface of the backend the engine propagates to.
type RemoteAPI interface {
	CreateInventoryItem(ctx context.Context, item model.InventoryItem) error
	UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id int64) error
	CreateSale(ctx context.Context, sale model.SaleRecord) error
}

// ResultHandler observes per-item drain outcomes. The offline manager
// uses it to settle optimistic updates.
type ResultHandler interface {
	HandleSyncSuccess(ctx context.Context, item model.SyncQueueItem)
	HandleSyncFailure(ctx context.Context, item model.SyncQueueItem, err error)
}

// SyncConfig holds engine policy knobs.
type SyncConfig struct {
	// Interval between periodic drains.
	Interval time.Duration
	// MaxRetries bounds attempts on one item within a single pass.
	MaxRetries int
	// RetryDelay is the fixed wait between in-pass attempts.
	RetryDelay time.Duration
	// BackoffBase seeds the between-pass backoff (base * 2^attempts).
	BackoffBase time.Duration
	// BackoffCap bounds the between-pass backoff.
	BackoffCap time.Duration
	// MaxAttempts is the pass-failure count after which an item is dead.
	MaxAttempts int
}

// DefaultSyncConfig mirrors the production defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:    5 * time.Minute,
		MaxRetries:  3,
		RetryDelay:  5 * time.Second,
		BackoffBase: 10 * time.Second,
		BackoffCap:  30 * time.Minute,
		MaxAttempts: 10,
	}
}

// SyncEngine drains the sync queue against the remote API when online.
// State machine: Idle -> Syncing -> Idle; a trigger arriving while a
// pass runs is dropped, not queued.
type SyncEngine struct {
	store   repository.Store
	remote  RemoteAPI
	monitor *netmon.Monitor
	cfg     SyncConfig

	handler ResultHandler

	syncing  atomic.Bool
	ticker   *time.Ticker
	sub      *netmon.Subscription
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// NewSyncEngine creates an engine. Zero-valued config fields fall back
// to defaults.
func NewSyncEngine(store repository.Store, remote RemoteAPI, monitor *netmon.Monitor, cfg SyncConfig) *SyncEngine {
	def := DefaultSyncConfig()
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap == 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}

	return &SyncEngine{
		store:   store,
		remote:  remote,
		monitor: monitor,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
}

// SetResultHandler registers the per-item outcome observer. Must be
// called before Start.
func (e *SyncEngine) SetResultHandler(h ResultHandler) {
	e.handler = h
}

// Start begins periodic drains and subscribes to reconnect events.
func (e *SyncEngine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(e.cfg.Interval)
	e.sub = e.monitor.Subscribe()
	e.mu.Unlock()

	go e.run()
	log.Printf("[SyncEngine] Started - interval: %v, retries: %d, max attempts: %d",
		e.cfg.Interval, e.cfg.MaxRetries, e.cfg.MaxAttempts)
}

func (e *SyncEngine) run() {
	for {
		select {
		case <-e.ticker.C:
			if e.monitor.Online() {
				e.trySync("periodic")
			}
		case ev := <-e.sub.C:
			if ev.Online && ev.WasOffline {
				e.trySync("reconnect")
			}
		case <-e.stopCh:
			log.Printf("[SyncEngine] Stopped")
			return
		}
	}
}

func (e *SyncEngine) trySync(trigger string) {
	if err := e.SyncAll(context.Background()); err != nil {
		if err != ErrOffline && err != ErrSyncInProgress {
			log.Printf("[SyncEngine] %s sync failed: %v", trigger, err)
		}
	}
}

// TriggerAsync starts a drain in the background if one can run. Used
// after a local mutation while online.
func (e *SyncEngine) TriggerAsync() {
	if !e.monitor.Online() || e.syncing.Load() {
		return
	}
	go e.trySync("mutation")
}

// Stop halts the engine and releases its subscription.
func (e *SyncEngine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.ticker != nil {
			e.ticker.Stop()
		}
		if e.sub != nil {
			e.sub.Unsubscribe()
		}
		close(e.stopCh)
		e.running = false
	})
}

// IsSyncing reports whether a drain pass is in flight.
func (e *SyncEngine) IsSyncing() bool {
	return e.syncing.Load()
}

// SyncAll runs one drain pass: every eligible queued item is attempted
// oldest-first; a failure on one item does not block later items. Fails
// fast when offline or when a pass is already running.
func (e *SyncEngine) SyncAll(ctx context.Context) error {
	if !e.monitor.Online() {
		return ErrOffline
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	queue, err := e.store.GetSyncQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sync queue: %w", err)
	}

	log.Printf("[SyncEngine] Starting sync - %d queued items", len(queue))

	passStart := time.Now()
	successCount := 0
	failureCount := 0

	for _, item := range queue {
		if !e.eligible(item, passStart) {
			continue
		}

		if err := e.processItem(ctx, item); err != nil {
			failureCount++
			log.Printf("[SyncEngine] Item %d (%s %s) failed: %v", item.ID, item.TableName, item.Operation, err)
			if rerr := e.store.RecordSyncFailure(ctx, item.ID, err.Error()); rerr != nil {
				log.Printf("[SyncEngine] Failed to record failure for item %d: %v", item.ID, rerr)
			}
			if e.handler != nil {
				e.handler.HandleSyncFailure(ctx, item, err)
			}
			continue
		}

		successCount++
		if rerr := e.store.RemoveSyncQueueItem(ctx, item.ID); rerr != nil {
			log.Printf("[SyncEngine] Failed to remove item %d: %v", item.ID, rerr)
		}
		e.markEntitySynced(ctx, item)
		if e.handler != nil {
			e.handler.HandleSyncSuccess(ctx, item)
		}
	}

	// The last-sync timestamp advances even when some items failed;
	// it records that a pass ran, not that the queue is empty.
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if err := e.store.SetSetting(ctx, settingLastSyncTime, ts); err != nil {
		log.Printf("[SyncEngine] Failed to record last sync time: %v", err)
	}

	log.Printf("[SyncEngine] Sync completed: %d success, %d failures", successCount, failureCount)
	return nil
}

// eligible filters dead items and items still backing off.
func (e *SyncEngine) eligible(item model.SyncQueueItem, now time.Time) bool {
	if item.Attempts >= e.cfg.MaxAttempts {
		return false
	}
	if item.Attempts == 0 || item.LastAttempt == nil {
		return true
	}
	return !now.Before(item.LastAttempt.Add(e.backoff(item.Attempts)))
}

// backoff grows exponentially with pass failures, capped.
func (e *SyncEngine) backoff(attempts int) time.Duration {
	d := e.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= e.cfg.BackoffCap {
			return e.cfg.BackoffCap
		}
	}
	if d > e.cfg.BackoffCap {
		d = e.cfg.BackoffCap
	}
	return d
}

// processItem dispatches one queued mutation, retrying within the pass
// up to the fixed bound with a fixed delay.
func (e *SyncEngine) processItem(ctx context.Context, item model.SyncQueueItem) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		lastErr = e.dispatch(ctx, item)
		if lastErr == nil {
			return nil
		}
		if attempt < e.cfg.MaxRetries {
			log.Printf("[SyncEngine] Retrying item %d in %v (attempt %d/%d)",
				item.ID, e.cfg.RetryDelay, attempt+1, e.cfg.MaxRetries)
			select {
			case <-time.After(e.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// dispatch picks the remote call from the table/operation pair.
func (e *SyncEngine) dispatch(ctx context.Context, item model.SyncQueueItem) error {
	switch item.TableName {
	case model.TableInventory:
		var inv model.InventoryItem
		if err := json.Unmarshal(item.Data, &inv); err != nil {
			return fmt.Errorf("invalid inventory payload: %w", err)
		}
		switch item.Operation {
		case model.OpCreate:
			return e.remote.CreateInventoryItem(ctx, inv)
		case model.OpUpdate:
			return e.remote.UpdateInventoryItem(ctx, inv)
		case model.OpDelete:
			return e.remote.DeleteInventoryItem(ctx, inv.ID)
		default:
			return fmt.Errorf("unknown operation: %s", item.Operation)
		}
	case model.TableSales:
		if item.Operation != model.OpCreate {
			return fmt.Errorf("unknown operation: %s", item.Operation)
		}
		var sale model.SaleRecord
		if err := json.Unmarshal(item.Data, &sale); err != nil {
			return fmt.Errorf("invalid sale payload: %w", err)
		}
		return e.remote.CreateSale(ctx, sale)
	default:
		return fmt.Errorf("unknown table: %s", item.TableName)
	}
}

// markEntitySynced flips the entity's synced flag after remote success.
func (e *SyncEngine) markEntitySynced(ctx context.Context, item model.SyncQueueItem) {
	switch item.TableName {
	case model.TableInventory:
		if item.Operation == model.OpDelete {
			return
		}
		var inv model.InventoryItem
		if err := json.Unmarshal(item.Data, &inv); err == nil && inv.ID != 0 {
			if err := e.store.MarkInventorySynced(ctx, inv.ID); err != nil {
				log.Printf("[SyncEngine] Failed to mark inventory %d synced: %v", inv.ID, err)
			}
		}
	case model.TableSales:
		var sale model.SaleRecord
		if err := json.Unmarshal(item.Data, &sale); err == nil && sale.ID != 0 {
			if err := e.store.MarkSaleSynced(ctx, sale.ID); err != nil {
				log.Printf("[SyncEngine] Failed to mark sale %d synced: %v", sale.ID, err)
			}
		}
	}
}

// Status reports the engine's observable state.
func (e *SyncEngine) Status(ctx context.Context) (*model.SyncStatus, error) {
	pending, dead, err := e.store.CountSyncQueue(ctx, e.cfg.MaxAttempts)
	if err != nil {
		return nil, err
	}

	status := &model.SyncStatus{
		IsOnline:     e.monitor.Online(),
		IsSyncing:    e.syncing.Load(),
		PendingCount: pending,
		DeadCount:    dead,
	}

	raw, err := e.store.GetSetting(ctx, settingLastSyncTime)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			status.LastSyncTime = &t
		}
	}

	return status, nil
}
