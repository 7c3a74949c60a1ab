package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"township-pos-api/internal/cache"
	"township-pos-api/internal/config"
	"township-pos-api/internal/handler"
	"township-pos-api/internal/netmon"
	"township-pos-api/internal/remote"
	"township-pos-api/internal/repository"
	"township-pos-api/internal/router"
	"township-pos-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Township POS API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the local store
	if dir := filepath.Dir(cfg.LocalDB.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	store, err := repository.NewSQLiteStore(cfg.LocalDB.Path, repository.Options{
		ShopID: cfg.App.ShopID,
		Seed:   cfg.App.SeedData,
	})
	if err != nil {
		log.Fatalf("Failed to initialize SQLite: %v", err)
	}
	defer store.Close()
	log.Println("SQLite store initialized")

	// Remote backend client
	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout)

	// Connectivity monitor; probes the remote base URL unless overridden
	probeURL := cfg.Netmon.ProbeURL
	if probeURL == "" {
		probeURL = cfg.Remote.BaseURL
	}
	monitor := netmon.New(
		netmon.HTTPProber(&http.Client{Timeout: cfg.Netmon.ProbeTimeout}, probeURL),
		cfg.Netmon.ProbeInterval,
		cfg.Netmon.ProbeTimeout,
	)
	monitor.Start()
	defer monitor.Stop()

	// Analytics cache: redis when configured, in-memory otherwise
	var analyticsCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, using in-memory cache: %v", err)
			analyticsCache = cache.NewMemoryCache()
		} else {
			log.Println("Redis cache initialized")
			analyticsCache = redisCache
		}
	} else {
		analyticsCache = cache.NewMemoryCache()
	}
	defer analyticsCache.Close()

	// Sync engine and offline manager
	engine := service.NewSyncEngine(store, remoteClient, monitor, service.SyncConfig{
		Interval:    cfg.Sync.Interval,
		MaxRetries:  cfg.Sync.MaxRetries,
		RetryDelay:  cfg.Sync.RetryDelay,
		BackoffBase: cfg.Sync.BackoffBase,
		BackoffCap:  cfg.Sync.BackoffCap,
		MaxAttempts: cfg.Sync.MaxAttempts,
	})
	offline := service.NewOfflineManager(store, engine, monitor, service.ConflictStrategy(cfg.Sync.ConflictStrategy))
	engine.SetResultHandler(offline)

	engine.Start()
	defer engine.Stop()
	offline.Start()
	defer offline.Stop()

	// Janitor for dead queue items and settled optimistic updates
	janitor := service.NewJanitor(store, service.JanitorConfig{
		Interval:      cfg.Sync.JanitorInterval,
		DeadRetention: cfg.Sync.DeadRetention,
		MaxAttempts:   cfg.Sync.MaxAttempts,
	})
	janitor.Start()
	defer janitor.Stop()

	// Initialize services
	inventoryService := service.NewInventoryService(store, offline, engine)
	salesService := service.NewSalesService(store, offline, engine)
	creditService := service.NewCreditService(store)
	gamificationService := service.NewGamificationService(store, analyticsCache, cfg.Cache.TTL)

	// Initialize handlers
	healthHandler := handler.New(store)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	salesHandler := handler.NewSalesHandler(salesService, gamificationService)
	creditHandler := handler.NewCreditHandler(creditService)
	gamificationHandler := handler.NewGamificationHandler(gamificationService)
	syncHandler := handler.NewSyncHandler(engine, offline, monitor)

	// Create router
	r := router.New(router.Config{
		Handler:             healthHandler,
		InventoryHandler:    inventoryHandler,
		SalesHandler:        salesHandler,
		CreditHandler:       creditHandler,
		GamificationHandler: gamificationHandler,
		SyncHandler:         syncHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
