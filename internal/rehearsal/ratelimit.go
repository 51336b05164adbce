package rehearsal

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"talentloop/internal/errors"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per caller. Callers are keyed by API
// key when they send one and by client IP otherwise. Buckets idle for longer
// than limiterIdleTTL are dropped.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	perSec  rate.Limit
	burst   int
	rejects int64

	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewClientLimiter allows requestsPerMin requests per minute per caller with
// bursts of up to burst requests.
func NewClientLimiter(requestsPerMin, burst int, logger *errors.Logger) *ClientLimiter {
	l := &ClientLimiter{
		buckets: make(map[string]*clientBucket),
		perSec:  rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   max(burst, 1),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go l.evictLoop(limiterIdleTTL)
	return l
}

// Reserve takes a token for key. When none is available it returns false and
// the wait until the next token.
func (l *ClientLimiter) Reserve(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.perSec, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		l.rejects++
		return false, 0
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		l.rejects++
		return false, wait
	}
	return true, 0
}

// Stats reports the limiter settings and current load
func (l *ClientLimiter) Stats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]any{
		"active_clients":  len(l.buckets),
		"rate_per_minute": float64(l.perSec) * 60.0,
		"burst_capacity":  l.burst,
		"rejected":        l.rejects,
	}
}

func (l *ClientLimiter) evictLoop(ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := l.evictIdle(now, ttl); n > 0 && l.logger != nil {
				l.logger.Debug("Evicted idle rate limit buckets", "evicted", n)
			}
		case <-l.stop:
			return
		}
	}
}

func (l *ClientLimiter) evictIdle(now time.Time, ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > ttl {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (l *ClientLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// rateLimitMiddleware answers 429 with a Retry-After header once a caller
// runs out of tokens
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.RateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(r)
		allowed, wait := s.RateLimiter.Reserve(key, time.Now())
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		s.Logger.Info("Rate limit exceeded", "endpoint", r.URL.Path, "client_ip", clientIP(r), "retry_after", wait)
		s.Metrics.RecordRateLimitHit(r.Context(), "rehearsal")
		if wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		writeErrorResponse(w, "Rate limit exceeded", "Too many requests", errors.ErrCodeRateLimited, http.StatusTooManyRequests)
	})
}

func rateLimitKey(r *http.Request) string {
	if apiKey := requestAPIKey(r); apiKey != "" {
		return "key:" + apiKey
	}
	return "ip:" + clientIP(r)
}

// clientIP returns the caller address. middleware.RealIP has already
// replaced RemoteAddr with any forwarded address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
