package redis

import (
	"log/slog"
	"time"
)

// Config configures the Redis backend. Zero limits are replaced with
// DefaultConfig values.
type Config struct {
	// URL is a redis:// or rediss:// connection URL
	URL string

	PoolSize     int
	MinIdleConns int

	// DialTimeout bounds the startup ping
	DialTimeout time.Duration

	// GuestPlayerTTL expires guest player records. Accounts never expire.
	GuestPlayerTTL time.Duration

	// EventLogSize caps the event log list
	EventLogSize int

	// MaxUpdateRetries bounds optimistic account update attempts
	MaxUpdateRetries int

	// Logger reports recoverable data problems. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig targets a local server
func DefaultConfig() Config {
	return Config{
		URL:              "redis://localhost:6379",
		PoolSize:         10,
		MinIdleConns:     2,
		DialTimeout:      5 * time.Second,
		GuestPlayerTTL:   24 * time.Hour,
		EventLogSize:     1000,
		MaxUpdateRetries: 16,
	}
}
