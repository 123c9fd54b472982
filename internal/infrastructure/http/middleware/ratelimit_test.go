package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ybolotov/flashsale-service/internal/pkg/clock"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

// memCounterStore mimics the store's TTL behavior: a key disappears once its
// deadline passes, and Expire sets the deadline for whatever key it is given.
type memCounterStore struct {
	mu      sync.Mutex
	clock   *clock.MockClock
	counts  map[string]int64
	expires map[string]time.Time

	expireCalls int
}

func newMemCounterStore(clk *clock.MockClock) *memCounterStore {
	return &memCounterStore{
		clock:   clk,
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (s *memCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.expires[key]; ok && !s.clock.Now().Before(deadline) {
		delete(s.counts, key)
		delete(s.expires, key)
	}

	s.counts[key]++
	return s.counts[key], nil
}

func (s *memCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireCalls++
	s.expires[key] = s.clock.Now().Add(ttl)
	return nil
}

func newLimiterFixture(clk *clock.MockClock, window time.Duration, requests int) (*RateLimiter, *memCounterStore) {
	store := newMemCounterStore(clk)
	rl := &RateLimiter{
		store:    store,
		log:      logger.NewLoggerWithOutput(io.Discard),
		window:   window,
		requests: requests,
	}
	return rl, store
}

func fireRequest(rl *RateLimiter, remoteAddr string, headers map[string]string) int {
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/flashsale/purchase", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, _ := newLimiterFixture(clk, time.Minute, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
	}
	assert.Equal(t, http.StatusTooManyRequests, fireRequest(rl, "1.2.3.4:5678", nil))

	// other IPs are unaffected
	assert.Equal(t, http.StatusOK, fireRequest(rl, "5.6.7.8:5678", nil))
}

func TestRateLimiterWindowResets(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, _ := newLimiterFixture(clk, time.Minute, 2)

	assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
	assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
	assert.Equal(t, http.StatusTooManyRequests, fireRequest(rl, "1.2.3.4:5678", nil))

	clk.Advance(time.Minute)

	assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
}

func TestRateLimiterSteadyClientNeverLockedOut(t *testing.T) {
	// 1 request per 900ms against a 2-per-second window stays compliant
	// forever; rejections here would mean the window never closes for a
	// client that keeps arriving before its TTL lapses.
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, _ := newLimiterFixture(clk, time.Second, 2)

	rejected := 0
	for i := 0; i < 20; i++ {
		if fireRequest(rl, "1.2.3.4:5678", nil) == http.StatusTooManyRequests {
			rejected++
		}
		clk.Advance(900 * time.Millisecond)
	}

	assert.Equal(t, 0, rejected)
}

func TestRateLimiterSetsTTLOnlyOnFirstHit(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, store := newLimiterFixture(clk, time.Minute, 100)

	for i := 0; i < 5; i++ {
		fireRequest(rl, "1.2.3.4:5678", nil)
	}

	assert.Equal(t, 1, store.expireCalls)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, _ := newLimiterFixture(clk, time.Minute, 1)
	rl.store = erroringCounterStore{}

	assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
	assert.Equal(t, http.StatusOK, fireRequest(rl, "1.2.3.4:5678", nil))
}

type erroringCounterStore struct{}

func (erroringCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, context.DeadlineExceeded
}

func (erroringCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return context.DeadlineExceeded
}

func TestClientIPTakesFirstForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", " , 203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "9.9.9.9", clientIP(req))
}

func TestRateLimiterKeysOnFirstForwardedHop(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rl, _ := newLimiterFixture(clk, time.Minute, 1)

	// same client, different proxy chains: one key, so the second hit trips
	headers1 := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}
	headers2 := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}

	assert.Equal(t, http.StatusOK, fireRequest(rl, "9.9.9.9:1234", headers1))
	assert.Equal(t, http.StatusTooManyRequests, fireRequest(rl, "9.9.9.9:1234", headers2))
}
