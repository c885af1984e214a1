package config

import "time"

// Config is the root configuration for the rotation data service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DBConfig        `yaml:"database"`
	Caches    CachesConfig    `yaml:"caches"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"`
}

// ProviderConfig holds upstream market-data provider settings.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"` // sent as X-CMC_PRO_API_KEY header
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig bounds calls to the upstream provider.
type RateLimitConfig struct {
	Window   time.Duration `yaml:"window"`
	MaxCalls int           `yaml:"max_calls"`
}

// DBConfig holds the PostgreSQL document store connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CachesConfig holds the three in-process TTL cache configurations.
type CachesConfig struct {
	TokenInfo  CacheConfig `yaml:"token_info"`
	Series     CacheConfig `yaml:"series"`
	Categories CacheConfig `yaml:"categories"`
}

// CacheConfig holds a single cache's bounds.
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// SnapshotConfig controls the persisted category snapshot.
type SnapshotConfig struct {
	// RefreshInterval is how often the background refresher re-fetches the
	// category list. Zero disables the refresher.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Freshness is how long a persisted series window is served without
	// going back to the provider.
	Freshness time.Duration `yaml:"freshness"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
