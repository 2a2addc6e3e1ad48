package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a client's limiter survives without requests.
const DefaultIdleTTL = 10 * time.Minute

const tooManyRequestsBody = `{"success":false,"message":"Too many requests","data":null,"error":"rate_limited"}`

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimiter applies a token bucket per client IP.
//
// WHY A CONCURRENT MAP?
// Every request touches the map. xsync.MapOf lets readers and writers of
// different keys proceed without a global lock, and LoadOrCompute creates a
// limiter exactly once per key.
type RateLimiter struct {
	limiters *xsync.MapOf[string, *clientLimiter]
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter returns a limiter allowing rps requests per second per IP
// with the given burst, and starts a goroutine that evicts idle clients.
// Call Stop to end it.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters: xsync.NewMapOf[string, *clientLimiter](),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  DefaultIdleTTL,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	cl, _ := rl.limiters.LoadOrCompute(key, func() *clientLimiter {
		return &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	})
	now := rl.now()
	cl.lastSeen.Store(now.UnixNano())
	return cl.limiter.AllowN(now, 1)
}

// Handler is the middleware. Rejected requests get 429 with the standard
// error envelope and a Retry-After hint.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(tooManyRequestsBody + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Evict drops limiters idle for longer than the TTL and returns how many
// were removed.
func (rl *RateLimiter) Evict() int {
	cutoff := rl.now().Add(-rl.idleTTL).UnixNano()
	removed := 0
	rl.limiters.Range(func(key string, cl *clientLimiter) bool {
		if cl.lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	return rl.limiters.Size()
}

// Stop ends the eviction goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			if n := rl.Evict(); n > 0 {
				rl.logger.Debug("idle rate limiters evicted", slog.Int("count", n))
			}
		}
	}
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already
// replaced with the forwarded address when one was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
