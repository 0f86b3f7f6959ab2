package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Burst(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := hit(h, "192.168.1.1:12345", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := hit(h, "192.168.1.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name      string
		cfg       RateLimitConfig
		first     http.Header
		firstAddr string
		second    http.Header
		secAddr   string
		wantCode  int
	}{
		{
			name:      "different ips are independent",
			firstAddr: "10.0.0.1:1", secAddr: "10.0.0.2:1",
			wantCode: http.StatusOK,
		},
		{
			name:      "same ip different port is limited",
			firstAddr: "10.0.0.1:1", secAddr: "10.0.0.1:2",
			wantCode: http.StatusTooManyRequests,
		},
		{
			name:      "x-forwarded-for first hop",
			first:     http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}},
			firstAddr: "192.168.1.1:1",
			second:    http.Header{"X-Forwarded-For": {"203.0.113.50"}},
			secAddr:   "192.168.1.2:1",
			wantCode:  http.StatusTooManyRequests,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-Session-ID")
			}},
			first:     http.Header{"X-Session-Id": {"a"}},
			firstAddr: "10.0.0.1:1",
			second:    http.Header{"X-Session-Id": {"b"}},
			secAddr:   "10.0.0.1:1",
			wantCode:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Max, cfg.Window = 1, time.Minute
			h := RateLimit(cfg)(okHandler())

			require.Equal(t, http.StatusOK, hit(h, tt.firstAddr, tt.first).Code)
			assert.Equal(t, tt.wantCode, hit(h, tt.secAddr, tt.second).Code)
		})
	}
}

func TestRateLimit_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: time.Second})
	now := time.Now()

	_, _, ok := rl.reserve("k", now)
	require.True(t, ok)
	_, _, ok = rl.reserve("k", now)
	require.True(t, ok)
	_, wait, ok := rl.reserve("k", now)
	require.False(t, ok)
	assert.InDelta(t, float64(500*time.Millisecond), float64(wait), float64(10*time.Millisecond))

	_, _, ok = rl.reserve("k", now.Add(600*time.Millisecond))
	assert.True(t, ok)
}

func TestRateLimit_Sweep(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	rl.reserve("old", now)
	rl.reserve("new", now.Add(50*time.Second))

	rl.sweep(now.Add(70 * time.Second))

	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "new")
}
