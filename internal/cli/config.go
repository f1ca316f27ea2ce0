package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables read by the CLI
const (
	EnvServer    = "FHECITY_SERVER"
	EnvToken     = "FHECITY_TOKEN"
	EnvTokenFile = "FHECITY_TOKEN_FILE"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
	Timeout   time.Duration

	// PlayerID is known when the token came from the session file
	PlayerID string
}

// savedSession is the on-disk form of the token file. A session is only
// used against the server that issued it.
type savedSession struct {
	Server   string `toml:"server"`
	Token    string `toml:"token"`
	PlayerID string `toml:"player_id"`
}

// DefaultConfig returns a Config seeded from the environment
func DefaultConfig() *Config {
	return &Config{
		ServerURL: envOr(EnvServer, "http://localhost:8080"),
		Token:     os.Getenv(EnvToken),
		TokenFile: envOr(EnvTokenFile, defaultTokenFile()),
		Output:    "text",
		Timeout:   30 * time.Second,
	}
}

// Validate checks flag values before any request is made
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.ServerURL)
	}
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// LoadToken reads the session file unless a token was given explicitly.
// Sessions saved for a different server are ignored.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var s savedSession
	if _, err := toml.Decode(string(data), &s); err != nil {
		return fmt.Errorf("read session file %s: %w", c.TokenFile, err)
	}
	if s.Server != "" && !sameServer(s.Server, c.ServerURL) {
		return nil
	}

	c.Token = s.Token
	c.PlayerID = s.PlayerID
	return nil
}

// SaveSession records the token for the current server
func (c *Config) SaveSession(token, playerID string) error {
	c.Token = token
	c.PlayerID = playerID

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return err
	}

	var buf bytes.Buffer
	s := savedSession{Server: c.ServerURL, Token: token, PlayerID: playerID}
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, buf.Bytes(), 0o600)
}

// ClearToken removes the saved session
func (c *Config) ClearToken() error {
	c.Token = ""
	c.PlayerID = ""
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func sameServer(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fhecity", "session.toml")
	}
	return filepath.Join(home, ".fhecity", "session.toml")
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
