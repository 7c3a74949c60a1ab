package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"township-pos-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite.
// Thread-safe with WAL mode; SQLite only supports one writer.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	shopID string
}

// Options configures store creation.
type Options struct {
	// ShopID identifies the shop in the credit snapshot row.
	ShopID string
	// Seed inserts the default inventory items when the table is empty.
	Seed bool
}

// NewSQLiteStore opens (creating if needed) the local database.
// dbPath is the path to the SQLite database file (e.g., "./data/pos.db").
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if opts.ShopID == "" {
		opts.ShopID = "local_shop"
	}

	s := &SQLiteStore{db: db, shopID: opts.ShopID}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := s.initializeDefaults(opts.Seed); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize defaults: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return s, nil
}

// createTables creates the local schema.
func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		category TEXT,
		barcode TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		synced INTEGER DEFAULT 0,
		sync_id TEXT
	);
	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_name TEXT NOT NULL,
		item_id INTEGER,
		quantity INTEGER NOT NULL,
		total REAL NOT NULL,
		payment_method TEXT NOT NULL,
		amount_received REAL,
		change_given REAL DEFAULT 0,
		timestamp TEXT NOT NULL,
		synced INTEGER DEFAULT 0,
		sync_id TEXT,
		FOREIGN KEY (item_id) REFERENCES inventory (id)
	);
	CREATE TABLE IF NOT EXISTS credit_score (
		id INTEGER PRIMARY KEY,
		shop_id TEXT DEFAULT 'local_shop',
		score INTEGER DEFAULT 0,
		total_sales REAL DEFAULT 0,
		transaction_count INTEGER DEFAULT 0,
		avg_transaction REAL DEFAULT 0,
		digital_adoption REAL DEFAULT 0,
		active_days INTEGER DEFAULT 0,
		updated_at TEXT NOT NULL,
		synced INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		operation TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		last_attempt TEXT,
		error_message TEXT
	);
	CREATE TABLE IF NOT EXISTS optimistic_updates (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		data TEXT NOT NULL,
		rollback_data TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp);
	CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at);
	CREATE INDEX IF NOT EXISTS idx_optimistic_status ON optimistic_updates(status);
	`
	_, err := s.db.Exec(query)
	return err
}

// defaultItems seed the catalogue on first run.
var defaultItems = []model.InventoryInput{
	{Name: "Bread", Price: 15.00, Quantity: 20, Category: "Food & Drinks"},
	{Name: "Milk 1L", Price: 18.50, Quantity: 15, Category: "Food & Drinks"},
	{Name: "Coca Cola 330ml", Price: 12.00, Quantity: 30, Category: "Food & Drinks"},
	{Name: "Airtime R10", Price: 10.00, Quantity: 100, Category: "Airtime & Data"},
	{Name: "Airtime R20", Price: 20.00, Quantity: 100, Category: "Airtime & Data"},
	{Name: "Cigarettes", Price: 45.00, Quantity: 10, Category: "Cigarettes"},
	{Name: "Soap Bar", Price: 8.50, Quantity: 25, Category: "Household"},
}

// initializeDefaults inserts seed inventory and the singleton credit row.
func (s *SQLiteStore) initializeDefaults(seed bool) error {
	ctx := context.Background()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM credit_score").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO credit_score (id, shop_id, score, total_sales, transaction_count, avg_transaction, digital_adoption, active_days, updated_at)
			VALUES (1, ?, 0, 0, 0, 0, 0, 0, ?)`,
			s.shopID, now())
		if err != nil {
			return err
		}
		log.Printf("[SQLiteStore] Credit snapshot initialized for shop %s", s.shopID)
	}

	if !seed {
		return nil
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for _, item := range defaultItems {
			if _, err := s.AddInventoryItem(ctx, item); err != nil {
				return err
			}
		}
		log.Printf("[SQLiteStore] Seeded %d default inventory items", len(defaultItems))
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// now returns the current time formatted for storage.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored timestamp.
func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure SQLiteStore implements the full store surface.
var _ Store = (*SQLiteStore)(nil)
