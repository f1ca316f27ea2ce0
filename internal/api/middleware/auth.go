package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/fhecity/internal/api/apierr"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/auth"
)

// SessionCookie is the cookie consulted when no bearer token is sent.
// Browser EventSource clients cannot set headers.
const SessionCookie = "session"

type sessionKey struct{}

// SessionValidator resolves bearer tokens to sessions
type SessionValidator interface {
	ValidateSession(token string) (*auth.Session, error)
}

// Auth rejects requests without a valid session
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// OptionalAuth may already have resolved it
			if GetSession(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="fhecity"`)
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := sessions.ValidateSession(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="fhecity", error="invalid_token"`)
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}

// OptionalAuth attaches the session when a valid token is present and
// otherwise lets the request through anonymously
func OptionalAuth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if session, err := sessions.ValidateSession(token); err == nil {
					r = r.WithContext(withSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func extractToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSession returns the session attached by Auth or OptionalAuth
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return session
}

// GetPlayer returns the authenticated player, or nil for anonymous requests
func GetPlayer(ctx context.Context) *model.Player {
	if session := GetSession(ctx); session != nil {
		return &session.Player
	}
	return nil
}

// MustGetPlayer returns the authenticated player. Only call it behind Auth.
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("middleware: no player in context, Auth not applied")
	}
	return player
}
