package router

import (
	"township-pos-api/internal/handler"
	"township-pos-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler             *handler.Handler
	InventoryHandler    *handler.InventoryHandler
	SalesHandler        *handler.SalesHandler
	CreditHandler       *handler.CreditHandler
	GamificationHandler *handler.GamificationHandler
	SyncHandler         *handler.SyncHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Inventory endpoints
		if cfg.InventoryHandler != nil {
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/", cfg.InventoryHandler.Create)
				r.Get("/{id}", cfg.InventoryHandler.Get)
				r.Put("/{id}", cfg.InventoryHandler.Update)
				r.Delete("/{id}", cfg.InventoryHandler.Delete)
			})
		}

		// Sales endpoints
		if cfg.SalesHandler != nil {
			r.Post("/sell", cfg.SalesHandler.Sell)
			r.Get("/sales-history", cfg.SalesHandler.History)
		}

		// Credit score endpoint
		if cfg.CreditHandler != nil {
			r.Get("/credit-score", cfg.CreditHandler.Score)
		}

		// Gamification endpoints
		if cfg.GamificationHandler != nil {
			r.Route("/gamification", func(r chi.Router) {
				r.Get("/", cfg.GamificationHandler.Summary)
				r.Get("/analytics", cfg.GamificationHandler.Analytics)
			})
		}

		// Sync endpoints
		if cfg.SyncHandler != nil {
			r.Route("/sync", func(r chi.Router) {
				r.Post("/", cfg.SyncHandler.Trigger)
				r.Get("/status", cfg.SyncHandler.Status)
				r.Post("/online", cfg.SyncHandler.SetOnline)
				r.Delete("/failed", cfg.SyncHandler.ClearFailed)
			})
		}
	})

	return r
}
