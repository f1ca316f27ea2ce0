package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
)

func TestParseBuildingType(t *testing.T) {
	tests := []struct {
		in   string
		want uint8
	}{
		{"house", uint8(model.BuildingHouse)},
		{"Farm", uint8(model.BuildingFarm)},
		{"WORKSHOP", uint8(model.BuildingWorkshop)},
		{"castle", uint8(model.BuildingCastle)},
		{"4", 4},
		{"0", 0},
		{"255", 255},
	}
	for _, tt := range tests {
		got, err := parseBuildingType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"tower", "256", "-1", ""} {
		_, err := parseBuildingType(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition("8")
	require.NoError(t, err)
	assert.Equal(t, 8, pos)

	// Range is checked server-side
	pos, err = parsePosition("12")
	require.NoError(t, err)
	assert.Equal(t, 12, pos)

	_, err = parsePosition("center")
	assert.Error(t, err)
}

func TestTileName(t *testing.T) {
	assert.Equal(t, "empty", tileName(model.EmptyTile))
	assert.Equal(t, "farm", tileName(uint8(model.BuildingFarm)))
	assert.Equal(t, "unknown(9)", tileName(9))
}

func TestParseCiphertext(t *testing.T) {
	ct := fhe.Ciphertext{Kind: fhe.KindU64, Payload: []byte{1, 2, 3}, Readers: []string{"p_alice"}}

	bare, err := json.Marshal(ct)
	require.NoError(t, err)
	got, err := parseCiphertext(bare)
	require.NoError(t, err)
	assert.Equal(t, ct, got)

	wrapped, err := json.Marshal(map[string]any{"player_id": "p_alice", "ciphertext": ct})
	require.NoError(t, err)
	got, err = parseCiphertext(wrapped)
	require.NoError(t, err)
	assert.Equal(t, ct, got)

	_, err = parseCiphertext([]byte(`{}`))
	assert.Error(t, err)

	_, err = parseCiphertext([]byte(`not json`))
	assert.Error(t, err)
}

func TestClientDecodesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sess_abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_JOINED","message":"Identity has not joined the city"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sess_abc")
	err := c.Get("/api/v1/city/accounts/p_x/balance", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOT_JOINED", apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, err.Error(), "NOT_JOINED")
}

func TestClientDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u8", body["kind"])
		_, _ = w.Write([]byte(`{"kind":"u8","value":3}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	var result Decrypted
	require.NoError(t, c.Post("/x", map[string]any{"kind": "u8"}, &result))
	assert.Equal(t, Decrypted{Kind: "u8", Value: 3}, result)
}

func rateLimitedServer(t *testing.T, rejections int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= rejections {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"Too many requests"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","storage":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClientRetriesRateLimitedRequests(t *testing.T) {
	srv, calls := rateLimitedServer(t, 2)

	c := NewClient(srv.URL, "")
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	var result HealthResult
	require.NoError(t, c.Get("/api/v1/health", &result))
	assert.Equal(t, "ok", result.Status)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
}

func TestClientGivesUpWhenStillRateLimited(t *testing.T) {
	srv, calls := rateLimitedServer(t, 100)

	c := NewClient(srv.URL, "")
	c.sleep = func(time.Duration) {}

	err := c.Get("/api/v1/health", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
	assert.EqualValues(t, maxAttempts, calls.Load())
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(""))
	assert.Equal(t, time.Second, retryDelay("soon"))
	assert.Equal(t, time.Second, retryDelay("0"))
	assert.Equal(t, 3*time.Second, retryDelay("3"))
	assert.Equal(t, maxRetryAfter, retryDelay("3600"))
}

func TestConfigSessionRoundTrip(t *testing.T) {
	c := &Config{ServerURL: "http://city.test", TokenFile: filepath.Join(t.TempDir(), "nested", "session.toml")}

	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token, "missing session file is fine")

	require.NoError(t, c.SaveSession("sess_xyz", "p_alice"))

	loaded := &Config{ServerURL: "http://city.test/", TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "sess_xyz", loaded.Token)
	assert.Equal(t, "p_alice", loaded.PlayerID)

	require.NoError(t, loaded.ClearToken())
	assert.Empty(t, loaded.Token)
	require.NoError(t, loaded.ClearToken(), "clearing twice is fine")
}

func TestConfigIgnoresSessionForOtherServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	saved := &Config{ServerURL: "http://city-a.test", TokenFile: path}
	require.NoError(t, saved.SaveSession("sess_a", "p_alice"))

	other := &Config{ServerURL: "http://city-b.test", TokenFile: path}
	require.NoError(t, other.LoadToken())
	assert.Empty(t, other.Token)
	assert.Empty(t, other.PlayerID)
}

func TestConfigExplicitTokenWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	saved := &Config{ServerURL: "http://city.test", TokenFile: path}
	require.NoError(t, saved.SaveSession("sess_file", "p_alice"))

	c := &Config{ServerURL: "http://city.test", TokenFile: path, Token: "sess_flag"}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "sess_flag", c.Token)
	assert.Empty(t, c.PlayerID, "player is unknown for a token given by flag")
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.ServerURL = "https://city.test"
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"no scheme":      func(c *Config) { c.ServerURL = "city.test:8080" },
		"bad scheme":     func(c *Config) { c.ServerURL = "ftp://city.test" },
		"unknown output": func(c *Config) { c.Output = "yaml" },
		"zero timeout":   func(c *Config) { c.Timeout = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			c := *valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCredentialsPassword(t *testing.T) {
	t.Setenv(PasswordEnv, "")

	flag := credentials{user: "bobby", pass: "hunter22"}
	pass, err := flag.password(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pass)

	stdin := credentials{user: "bobby", passStdin: true}
	pass, err = stdin.password(strings.NewReader("from-stdin\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", pass)

	_, err = stdin.password(strings.NewReader(""))
	assert.Error(t, err)

	none := credentials{user: "bobby"}
	_, err = none.password(strings.NewReader(""))
	assert.ErrorContains(t, err, PasswordEnv)

	t.Setenv(PasswordEnv, "from-env")
	pass, err = none.password(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "from-env", pass)
}

func TestReadSSE(t *testing.T) {
	stream := "event: connected\ndata: {\"status\":\"connected\"}\n\n" +
		": keepalive\n\n" +
		"event: building_placed\ndata: {\"id\":\"e1\",\n" +
		"data: \"type\":\"building_placed\"}\n\n" +
		"event: player_joined\ndata: {}\n\n"

	var frames []sseFrame
	err := readSSE(strings.NewReader(stream), func(f sseFrame) bool {
		frames = append(frames, f)
		return len(frames) < 2
	})
	require.NoError(t, err)

	require.Len(t, frames, 2)
	assert.Equal(t, "connected", frames[0].Event)
	assert.Equal(t, "building_placed", frames[1].Event)
	assert.Equal(t, "{\"id\":\"e1\",\n\"type\":\"building_placed\"}", frames[1].Data)
}
