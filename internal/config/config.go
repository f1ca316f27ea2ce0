// Package config loads server settings from an optional TOML file and
// environment overrides
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mcoot/fhecity/internal/model"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Environment variable names
const (
	EnvConfigFile  = "FHECITY_CONFIG"
	EnvStorageType = "STORAGE_TYPE"
	EnvRedisURL    = "REDIS_URL"
	EnvKey         = "FHECITY_KEY"
	EnvStoreID     = "FHECITY_STORE_ID"
	EnvPort        = "PORT"
)

// Config is the full server configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Engine    EngineConfig    `toml:"engine"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type         string `toml:"type"`
	RedisURL     string `toml:"redis_url"`
	EventLogSize int    `toml:"event_log_size"`
}

// EngineConfig holds the encryption engine settings
type EngineConfig struct {
	// Key is the base64 (standard encoding) engine key. Empty means an
	// ephemeral key is generated at startup.
	Key string `toml:"key"`
	// StoreID is the identity stored values are shared with
	StoreID string `toml:"store_id"`
}

// AuthConfig holds session settings
type AuthConfig struct {
	SessionDuration time.Duration `toml:"session_duration"`
}

// RateLimitConfig bounds request rates per client address
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxClients        int     `toml:"max_clients"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CleanupInterval: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Type:         StorageTypeMemory,
			EventLogSize: 1000,
		},
		Engine: EngineConfig{
			StoreID: "fhecity-store",
		},
		Auth: AuthConfig{
			SessionDuration: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
			MaxClients:        10_000,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FHECITY_CONFIG (if any), then individual environment variables
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv(EnvConfigFile); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if v := getenv(EnvStorageType); v != "" {
		cfg.Storage.Type = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := getenv(EnvKey); v != "" {
		cfg.Engine.Key = v
	}
	if v := getenv(EnvStoreID); v != "" {
		cfg.Engine.StoreID = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis_url required when storage type is redis")
		}
	default:
		return fmt.Errorf("invalid storage type %q: must be 'memory' or 'redis'", c.Storage.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.CleanupInterval <= 0 {
		return errors.New("server cleanup_interval must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 || c.RateLimit.MaxClients <= 0) {
		return errors.New("rate_limit requires positive requests_per_second, burst and max_clients when enabled")
	}
	if c.Engine.StoreID == "" {
		return errors.New("engine store_id must not be empty")
	}
	if model.IsPlayerIdentity(c.Engine.StoreID) {
		return fmt.Errorf("engine store_id %q collides with the player namespace", c.Engine.StoreID)
	}
	if _, err := c.Engine.KeyBytes(); err != nil {
		return err
	}
	return nil
}

// KeyBytes decodes the configured key, returning nil if none is set
func (e EngineConfig) KeyBytes() ([]byte, error) {
	if e.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, fmt.Errorf("decode engine key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("engine key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Addr returns the listen address for the server
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}
