// Package ratelimit caps mutating requests per client with a fixed one
// minute window.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"pfm/internal/cache"
	"pfm/internal/metrics"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	MaxClients        int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 30,
		MaxClients:        4096,
	}
}

type window struct {
	start    time.Time
	requests int
}

// Limiter tracks request windows per client. Idle clients expire from the
// underlying LRU after ten minutes.
type Limiter struct {
	mu      sync.Mutex
	clients *cache.LRUCache[*window]
	limit   int
	now     func() time.Time
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	return &Limiter{
		clients: cache.NewLRUCache[*window](config.MaxClients, 10*time.Minute),
		limit:   config.RequestsPerMinute,
		now:     time.Now,
	}
}

// Clients exposes the window cache so it can be registered for cleanup.
func (rl *Limiter) Clients() cache.Cleaner {
	return rl.clients
}

// Allow records a request from clientIP and reports whether it fits the
// current window.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, _ := rl.clients.GetOrCreate(clientIP, func() *window { return &window{start: now} })
	if now.Sub(w.start) >= time.Minute {
		w.start, w.requests = now, 0
	}
	w.requests++
	return w.requests <= rl.limit
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Middleware limits requests whose method is not safe. GET and HEAD pass
// through untouched.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(extractIP(r)) {
				metrics.RateLimited.Inc()
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
