// Package ratelimit throttles expensive endpoints per client address.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"expensy/internal/metrics"
)

// Limiter is a fixed-window counter per client.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time

	limit  int
	period time.Duration
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	Requests int
	Period   time.Duration
}

// DefaultConfig allows 30 requests per client per minute.
func DefaultConfig() Config {
	return Config{Requests: 30, Period: time.Minute}
}

func NewLimiter(config Config) *Limiter {
	d := DefaultConfig()
	if config.Requests <= 0 {
		config.Requests = d.Requests
	}
	if config.Period <= 0 {
		config.Period = d.Period
	}
	return &Limiter{
		clients: make(map[string]*window),
		now:     time.Now,
		limit:   config.Requests,
		period:  config.Period,
	}
}

// Allow records a request from key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.clients[key] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= l.limit
}

// Sweep forgets clients whose window has expired and returns how many.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.period {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// ActiveClients returns the number of currently tracked clients
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Run sweeps stale clients every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Middleware rejects requests over the limit with 429. keyFn extracts the
// client key, usually its address.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(l.period.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r)) {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
