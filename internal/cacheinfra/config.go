package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

const (
	// BackendMemory keeps entries in process using sturdyc.
	BackendMemory = "memory"
	// BackendRedis shares entries between processes through redis.
	BackendRedis = "redis"
)

// Config holds the configuration for the cache adapters.
type Config struct {
	// Backend selects the store: "memory" (default) or "redis".
	Backend string

	// Capacity defines the maximum number of entries that the memory cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL is the time-to-live for every cached entry.
	// List reads are cached for a fixed 60 seconds.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the memory cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// Redis is only read when Backend is "redis".
	Redis RedisConfig
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key written by this service.
	Prefix string
}

// DefaultConfig returns the list cache defaults.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          64,
		TTL:                60 * time.Second,
		EvictionPercentage: 10,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "scaffold:",
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL and EvictionPercentage are passed directly to
// sturdyc.New. Early refreshes and missing record storage stay off: an
// expired list entry is recomputed on the next read, nothing else.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return &ConfigError{Field: "Redis.Addr", Message: "is required for the redis backend"}
		}
		if c.Redis.DB < 0 {
			return &ConfigError{Field: "Redis.DB", Message: "must be non-negative"}
		}
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of memory, redis"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.Backend == BackendRedis {
		return nil
	}

	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
