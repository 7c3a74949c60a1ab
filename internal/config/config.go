package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	LocalDB LocalDBConfig
	Remote  RemoteConfig
	Sync    SyncConfig
	Netmon  NetmonConfig
	Cache   CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"township-pos-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	ShopID      string `envconfig:"SHOP_ID" default:"local_shop"`
	SeedData    bool   `envconfig:"SEED_DATA" default:"true"`
}

// LocalDBConfig holds the embedded store settings.
type LocalDBConfig struct {
	Path string `envconfig:"LOCAL_DB_PATH" default:"./data/pos.db"`
}

// RemoteConfig holds the backend REST collaborator settings.
type RemoteConfig struct {
	BaseURL        string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:5001/api"`
	RequestTimeout time.Duration `envconfig:"REMOTE_REQUEST_TIMEOUT" default:"15s"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	Interval    time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	MaxRetries  int           `envconfig:"SYNC_MAX_RETRIES" default:"3"`
	RetryDelay  time.Duration `envconfig:"SYNC_RETRY_DELAY" default:"5s"`
	BackoffBase time.Duration `envconfig:"SYNC_BACKOFF_BASE" default:"10s"`
	BackoffCap  time.Duration `envconfig:"SYNC_BACKOFF_CAP" default:"30m"`
	MaxAttempts int           `envconfig:"SYNC_MAX_ATTEMPTS" default:"10"`
	// DeadRetention is how long dead queue items are kept for inspection
	// before the janitor purges them.
	DeadRetention   time.Duration `envconfig:"SYNC_DEAD_RETENTION" default:"168h"`
	JanitorInterval time.Duration `envconfig:"SYNC_JANITOR_INTERVAL" default:"1h"`
	// ConflictStrategy is one of client-wins, server-wins, merge.
	ConflictStrategy string `envconfig:"SYNC_CONFLICT_STRATEGY" default:"client-wins"`
}

// NetmonConfig holds connectivity monitor settings.
type NetmonConfig struct {
	// ProbeURL is the endpoint polled for reachability. Empty means
	// probe the remote base URL.
	ProbeURL      string        `envconfig:"NETMON_PROBE_URL" default:""`
	ProbeInterval time.Duration `envconfig:"NETMON_PROBE_INTERVAL" default:"30s"`
	ProbeTimeout  time.Duration `envconfig:"NETMON_PROBE_TIMEOUT" default:"5s"`
}

// CacheConfig holds cache settings for analytics reads.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"1m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
