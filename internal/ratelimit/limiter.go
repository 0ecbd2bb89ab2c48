// Package ratelimit throttles the public endpoints per client address.
// The lead form and tracking redirects are reachable without auth, so
// a single scraper must not be able to flood them.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneAfter is how long an idle client entry survives
const pruneAfter = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out a token bucket per client key
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	lastPrune time.Time
}

// New builds a limiter allowing perMinute requests per client with the
// given burst. perMinute <= 0 disables limiting.
func New(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &Limiter{
		clients:   make(map[string]*client),
		rate:      rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

// Allow reports whether the client identified by key may proceed. A nil
// limiter allows everything.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > pruneAfter {
		l.prune(now)
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.Allow()
}

// prune drops entries not seen recently. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > pruneAfter {
			delete(l.clients, key)
		}
	}
	l.lastPrune = now
}

// Middleware rejects over-limit clients with 429. Clients are keyed by
// remote IP; chi's RealIP middleware runs earlier so RemoteAddr already
// reflects X-Forwarded-For behind a proxy.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
