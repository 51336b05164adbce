package rehearsal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"talentloop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLimiterReserve(t *testing.T) {
	l := NewClientLimiter(60, 2, nil)
	defer l.Close()
	now := time.Now()

	ok, _ := l.Reserve("ip:10.0.0.1", now)
	assert.True(t, ok)
	ok, _ = l.Reserve("ip:10.0.0.1", now)
	assert.True(t, ok)

	ok, wait := l.Reserve("ip:10.0.0.1", now)
	assert.False(t, ok, "burst exhausted")
	assert.InDelta(t, time.Second, wait, float64(50*time.Millisecond))

	ok, _ = l.Reserve("ip:10.0.0.2", now)
	assert.True(t, ok, "buckets are per caller")

	ok, _ = l.Reserve("ip:10.0.0.1", now.Add(time.Second))
	assert.True(t, ok, "a rejected request does not consume the refilled token")

	stats := l.Stats()
	assert.Equal(t, 2, stats["active_clients"])
	assert.Equal(t, int64(1), stats["rejected"])
	assert.Equal(t, 60.0, stats["rate_per_minute"])
}

func TestClientLimiterEvictIdle(t *testing.T) {
	l := NewClientLimiter(60, 1, nil)
	defer l.Close()
	now := time.Now()

	l.Reserve("ip:old", now.Add(-time.Hour))
	l.Reserve("ip:fresh", now)

	assert.Equal(t, 1, l.evictIdle(now, limiterIdleTTL))
	assert.Equal(t, 1, l.Stats()["active_clients"])

	l.Close()
	l.Close()
}

func TestRateLimitKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/resumes/r1", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "ip:192.0.2.7", rateLimitKey(r))

	r.Header.Set("X-API-Key", "k1")
	assert.Equal(t, "key:k1", rateLimitKey(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.3"
	assert.Equal(t, "198.51.100.3", clientIP(r))
}

func TestRateLimitRetryAfter(t *testing.T) {
	s, srv := newTestServer(t, ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, BurstCapacity: 1},
	}, nil)
	defer s.RateLimiter.Close()

	post := func(forwardedFor string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/interview/start", strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusOK, post("203.0.113.1").StatusCode)
	limited := post("203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, "2", limited.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post("203.0.113.2").StatusCode, "forwarded address gets its own bucket")
}
