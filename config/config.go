package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-rest-scaffold/cache"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted by Load when no path
// is given.
const EnvPath = "SCAFFOLD_CONFIG"

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	Validation ValidationConfig `yaml:"validation"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string          `yaml:"addr"`
	CORSOrigins     []string        `yaml:"cors_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

// RateLimitConfig bounds the request rate accepted by the server.
// A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CacheConfig configures the list cache store.
type CacheConfig struct {
	Backend  string      `yaml:"backend"`
	Capacity int         `yaml:"capacity"`
	Shards   int         `yaml:"shards"`
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig configures the process logger. An empty Path logs to stdout.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// ValidationConfig holds the rule code -> message catalog.
type ValidationConfig struct {
	Messages map[string]string `yaml:"messages"`
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Default returns a configuration that runs against a local SQLite file
// with the in memory cache.
func Default() Config {
	cc := cache.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          "file:scaffold.db?cache=shared&_foreign_keys=1",
			MaxOpenConns: 10,
		},
		Cache: CacheConfig{
			Backend:  cc.Backend,
			Capacity: cc.Capacity,
			Shards:   cc.NumShards,
			Redis: RedisConfig{
				Addr:   cc.Redis.Addr,
				DB:     cc.Redis.DB,
				Prefix: cc.Redis.Prefix,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatJSON,
		},
		Validation: ValidationConfig{
			Messages: map[string]string{
				"validation_key_missing": "required",
			},
		},
	}
}

// Load reads the YAML file at path over the defaults. When path is empty
// the SCAFFOLD_CONFIG variable is used; when that is empty too, the
// defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}

	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns the first problem found
// as a *ConfigError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return &ConfigError{Field: "server.addr", Message: "cannot be empty"}
	}
	if c.Server.RateLimit.RPS < 0 {
		return &ConfigError{Field: "server.rate_limit.rps", Message: "cannot be negative"}
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst < 1 {
		return &ConfigError{Field: "server.rate_limit.burst", Message: "must be at least 1 when rps is set"}
	}

	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return &ConfigError{Field: "database.driver", Message: "must be one of mysql, postgres, sqlite"}
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return &ConfigError{Field: "database.dsn", Message: "cannot be empty"}
	}

	if err := c.Cache.ToCache().Validate(); err != nil {
		return &ConfigError{Field: "cache", Message: err.Error()}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return &ConfigError{Field: "log.level", Message: err.Error()}
	}
	switch c.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		return &ConfigError{Field: "log.format", Message: "must be json or console"}
	}

	return nil
}

// ToCache converts the section into a cache.Config. The TTL is left at
// the cache default; the container fixes it for list reads.
func (c CacheConfig) ToCache() cache.Config {
	cc := cache.DefaultConfig()
	cc.Backend = c.Backend
	cc.Capacity = c.Capacity
	cc.NumShards = c.Shards
	cc.Redis = cache.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
	}
	return cc
}
