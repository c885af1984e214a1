package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return errors.New("provider.api_key is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.RateLimit.MaxCalls < 1 {
		return errors.New("rate_limit.max_calls must be >= 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}

	if err := c.Caches.TokenInfo.validate("caches.token_info"); err != nil {
		return err
	}
	if err := c.Caches.Series.validate("caches.series"); err != nil {
		return err
	}
	if err := c.Caches.Categories.validate("caches.categories"); err != nil {
		return err
	}

	if c.Snapshot.Freshness <= 0 {
		return errors.New("snapshot.freshness must be positive")
	}
	if c.Snapshot.RefreshInterval < 0 {
		return errors.New("snapshot.refresh_interval cannot be negative")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (cc *CacheConfig) validate(prefix string) error {
	if cc.Capacity < 1 {
		return fmt.Errorf("%s.capacity must be >= 1", prefix)
	}
	if cc.TTL <= 0 {
		return fmt.Errorf("%s.ttl must be positive", prefix)
	}
	return nil
}
