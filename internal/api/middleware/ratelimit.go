package middleware

import (
	"net"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mcoot/fhecity/internal/api/apierr"
)

// RateLimitConfig bounds request rates per client
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// MaxClients caps the number of tracked clients; the least recently
	// seen client's limiter is evicted first
	MaxClients int
}

// RateLimiter hands out token buckets keyed by client
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter set
func NewRateLimiter(cfg RateLimitConfig) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limiters: cache,
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
	}, nil
}

// Allow reports whether key may make a request now
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Len returns the number of tracked clients
func (l *RateLimiter) Len() int {
	return l.limiters.Len()
}

// RateLimit rejects requests from clients that exceed their budget.
// Authenticated callers are keyed by player, everyone else by address.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				apierr.WriteError(w, apierr.NewRateLimitedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if player := GetPlayer(r.Context()); player != nil {
		return "player:" + string(player.ID)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
