package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// visitorTTL is how long an idle client keeps its limiter before it is
// swept from the table.
const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter enforces a per-client token bucket keyed by IP. Render
// requests are CPU-bound (decode plus resize), so a single client
// hammering cache misses can starve everyone else without this.
type ClientLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration

	// now is overridable for tests.
	now func() time.Time
}

// NewClientLimiter returns a limiter allowing limit requests per second
// with the given burst per client.
func NewClientLimiter(limit float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(limit),
		burst:    burst,
		ttl:      visitorTTL,
		now:      time.Now,
	}
}

// Allow reports whether the client identified by key may proceed.
func (cl *ClientLimiter) Allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	v, ok := cl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.visitors[key] = v
	}
	v.lastSeen = now

	// Sweep idle entries while we hold the lock. The table is small
	// enough that a linear pass per request is cheaper than a
	// background goroutine.
	for key, vis := range cl.visitors {
		if now.Sub(vis.lastSeen) > cl.ttl {
			delete(cl.visitors, key)
		}
	}

	return v.limiter.Allow()
}

// Len returns the number of tracked clients.
func (cl *ClientLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.visitors)
}

// RateLimit returns a middleware that rejects requests exceeding the
// per-client limit with 429 Too Many Requests.
func RateLimit(limiter *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(getClientIP(r)) {
				metrics.HTTPRateLimitedTotal.WithLabelValues(normalizePath(r.URL.Path)).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limiter.limit)))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds converts the refill rate into a whole-second hint,
// never less than one.
func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 1
	}
	secs := int(1 / float64(limit))
	if secs < 1 {
		secs = 1
	}
	return secs
}
