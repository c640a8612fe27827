package cache

import (
	"time"

	"github.com/goliatone/go-rest-scaffold/internal/cacheinfra"
)

// Backends supported by NewCacheService.
const (
	BackendMemory = cacheinfra.BackendMemory
	BackendRedis  = cacheinfra.BackendRedis
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	Redis              RedisConfig
}

// RedisConfig configures the shared redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// DefaultConfig returns a Config populated with the list cache defaults:
// in memory storage with a 60 second TTL.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the cache service for the configured backend.
func NewCacheService(cfg Config) (CacheService, error) {
	internal := cfg.toInternal()
	if internal.Backend == BackendRedis {
		return cacheinfra.NewRedisService(internal)
	}
	return cacheinfra.NewSturdycService(internal)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Redis: cacheinfra.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Redis: RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}
}
