package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	key, err := cfg.Engine.KeyBytes()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestParseFile(t *testing.T) {
	cfg, err := Parse(`
[server]
port = 9000
shutdown_timeout = "5s"

[storage]
type = "redis"
redis_url = "redis://cache:6379"

[engine]
store_id = "city-hall"

[rate_limit]
enabled = false
`)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout, "unset keys keep defaults")
	assert.Equal(t, StorageTypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379", cfg.Storage.RedisURL)
	assert.Equal(t, "city-hall", cfg.Engine.StoreID)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fhecity.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n[engine]\nstore_id = \"from-file\"\n"), 0o600))

	cfg, err := Load(env(map[string]string{
		EnvConfigFile: path,
		EnvPort:       "9100",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Engine.StoreID)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	cfg, err := Load(env(map[string]string{
		EnvStorageType: StorageTypeRedis,
		EnvRedisURL:    "redis://localhost:6380",
		EnvKey:         key,
		EnvStoreID:     "store-2",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageTypeRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://localhost:6380", cfg.Storage.RedisURL)
	assert.Equal(t, "store-2", cfg.Engine.StoreID)
	raw, err := cfg.Engine.KeyBytes()
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage", map[string]string{EnvStorageType: "postgres"}},
		{"redis without url", map[string]string{EnvStorageType: StorageTypeRedis}},
		{"bad port", map[string]string{EnvPort: "eighty"}},
		{"port out of range", map[string]string{EnvPort: "70000"}},
		{"key not base64", map[string]string{EnvKey: "!!!"}},
		{"short key", map[string]string{EnvKey: base64.StdEncoding.EncodeToString([]byte("short"))}},
		{"missing file", map[string]string{EnvConfigFile: "/nonexistent/fhecity.toml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero cleanup interval", "[server]\ncleanup_interval = \"0s\"\n"},
		{"rate limit without burst", "[rate_limit]\nenabled = true\nburst = 0\n"},
		{"rate limit without clients", "[rate_limit]\nmax_clients = -1\n"},
		{"empty store id", "[engine]\nstore_id = \"\"\n"},
		{"store id in player namespace", "[engine]\nstore_id = \"p_store\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			assert.Error(t, err)
		})
	}
}
