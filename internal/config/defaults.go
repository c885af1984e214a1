package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr      = ":8000"
	DefaultCORSOrigin      = "http://localhost:3000"
	DefaultProviderBaseURL = "https://pro-api.coinmarketcap.com/v1"
	DefaultProviderTimeout = 30 * time.Second
	DefaultRateWindow      = 60 * time.Second
	DefaultRateMaxCalls    = 30
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultTokenCacheCap   = 1000
	DefaultTokenCacheTTL   = time.Hour
	DefaultSeriesCacheCap  = 1000
	DefaultSeriesCacheTTL  = time.Hour
	DefaultCatCacheCap     = 100
	DefaultCatCacheTTL     = 5 * time.Minute
	DefaultFreshness       = time.Hour
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = DefaultCORSOrigin
	}

	// Provider defaults
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultProviderBaseURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}

	// Rate limit defaults
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultRateWindow
	}
	if c.RateLimit.MaxCalls == 0 {
		c.RateLimit.MaxCalls = DefaultRateMaxCalls
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Cache defaults
	applyCacheDefaults(&c.Caches.TokenInfo, DefaultTokenCacheCap, DefaultTokenCacheTTL)
	applyCacheDefaults(&c.Caches.Series, DefaultSeriesCacheCap, DefaultSeriesCacheTTL)
	applyCacheDefaults(&c.Caches.Categories, DefaultCatCacheCap, DefaultCatCacheTTL)

	// Snapshot defaults
	if c.Snapshot.Freshness == 0 {
		c.Snapshot.Freshness = DefaultFreshness
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyCacheDefaults(cc *CacheConfig, capacity int, ttl time.Duration) {
	if cc.Capacity == 0 {
		cc.Capacity = capacity
	}
	if cc.TTL == 0 {
		cc.TTL = ttl
	}
}
