package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/auth"
)

type stubSessions map[string]*auth.Session

func (s stubSessions) ValidateSession(token string) (*auth.Session, error) {
	if session, ok := s[token]; ok {
		return session, nil
	}
	return nil, auth.ErrInvalidSession
}

var aliceSessions = stubSessions{
	"sess_alice": {Token: "sess_alice", PlayerID: "p_alice", Player: model.Player{ID: "p_alice"}},
}

func playerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if player := GetPlayer(r.Context()); player != nil {
			_, _ = w.Write([]byte(player.ID))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestAuthAcceptsBearerAndCookie(t *testing.T) {
	handler := Auth(aliceSessions)(playerEcho())

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer sess_alice")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, bearer)
	assert.Equal(t, "p_alice", rr.Body.String())

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess_alice"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, cookie)
	assert.Equal(t, "p_alice", rr.Body.String())
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(aliceSessions)(playerEcho())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Bearer realm="fhecity"`, rr.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sess_mallory")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	handler := OptionalAuth(aliceSessions)(playerEcho())

	for token, want := range map[string]string{"": "anonymous", "sess_mallory": "anonymous", "sess_alice": "p_alice"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, want, rr.Body.String(), "token %q", token)
	}
}

func TestAuthReusesOptionalAuthSession(t *testing.T) {
	calls := 0
	counting := sessionFunc(func(token string) (*auth.Session, error) {
		calls++
		return aliceSessions.ValidateSession(token)
	})
	handler := OptionalAuth(counting)(Auth(counting)(playerEcho()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sess_alice")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "p_alice", rr.Body.String())
	assert.Equal(t, 1, calls)
}

func TestMustGetPlayerPanicsWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Panics(t, func() { MustGetPlayer(req.Context()) })
}

type sessionFunc func(token string) (*auth.Session, error)

func (f sessionFunc) ValidateSession(token string) (*auth.Session, error) {
	return f(token)
}
