package service

import (
	"context"
	"log"
	"sync"
	"time"

	"township-pos-api/internal/repository"
)

// JanitorConfig holds configuration for the janitor scheduler.
type JanitorConfig struct {
	// Interval is how often the janitor runs.
	// Default: 1 hour
	Interval time.Duration

	// DeadRetention is how long dead sync queue items are kept before
	// they are purged. Default: 7 days
	DeadRetention time.Duration

	// MaxAttempts is the attempt count at which a queue item counts as
	// dead. Must match the sync engine's setting. Default: 10
	MaxAttempts int
}

// DefaultJanitorConfig returns default janitor configuration.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval:      1 * time.Hour,
		DeadRetention: 7 * 24 * time.Hour,
		MaxAttempts:   10,
	}
}

// Janitor runs periodic cleanup of dead sync queue items and settled
// optimistic updates so the local database does not grow unbounded.
type Janitor struct {
	store     repository.Store
	config    JanitorConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewJanitor creates a new janitor scheduler.
func NewJanitor(store repository.Store, config JanitorConfig) *Janitor {
	defaults := DefaultJanitorConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.DeadRetention == 0 {
		config.DeadRetention = defaults.DeadRetention
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	return &Janitor{
		store:  store,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the janitor scheduler.
func (j *Janitor) Start() {
	j.mu.Lock()
	if j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = true
	j.ticker = time.NewTicker(j.config.Interval)
	j.mu.Unlock()

	log.Printf("[Janitor] Started - Interval: %v, Retention: %v",
		j.config.Interval, j.config.DeadRetention)

	go j.run()
}

// run is the main janitor loop.
func (j *Janitor) run() {
	for {
		select {
		case <-j.ticker.C:
			j.runCleanup()
		case <-j.stopCh:
			log.Printf("[Janitor] Stopped")
			return
		}
	}
}

// runCleanup performs one cleanup pass.
func (j *Janitor) runCleanup() {
	purgedDead, purgedSettled, err := j.RunNow()
	if err != nil {
		log.Printf("[Janitor] Error during cleanup: %v", err)
		return
	}

	if purgedDead > 0 || purgedSettled > 0 {
		log.Printf("[Janitor] Purged %d dead sync items, %d settled optimistic updates",
			purgedDead, purgedSettled)
	}
}

// RunNow triggers an immediate cleanup pass and returns how many dead
// sync items and settled optimistic updates were purged.
func (j *Janitor) RunNow() (int64, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.config.DeadRetention)

	dead, err := j.store.PurgeDeadSyncItems(ctx, j.config.MaxAttempts, cutoff)
	if err != nil {
		return 0, 0, err
	}

	settled, err := j.store.PurgeSettledOptimisticUpdates(ctx, cutoff)
	if err != nil {
		return dead, 0, err
	}

	return dead, settled, nil
}

// Stop stops the janitor scheduler.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		defer j.mu.Unlock()

		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.stopCh)
		j.isRunning = false
	})
}
