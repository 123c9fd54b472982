package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ybolotov/flashsale-service/internal/infrastructure/monitoring"
	"github.com/ybolotov/flashsale-service/internal/pkg/logger"
)

// rateCounterStore is the slice of the shared store the limiter needs:
// an increment and a TTL set. Keys vanish when their TTL lapses.
type rateCounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimiter is a fixed-window per-IP limiter backed by a shared counter,
// so the limit holds across processes. The key gets its TTL on the first
// increment of a window only; refreshing it on later hits would keep a busy
// client's window from ever closing.
type RateLimiter struct {
	store    rateCounterStore
	log      *logger.Logger
	window   time.Duration
	requests int
}

func NewRateLimiter(client *redis.Client, log *logger.Logger, window time.Duration, requests int) *RateLimiter {
	return &RateLimiter{
		store:    &redisCounterStore{client: client},
		log:      log,
		window:   window,
		requests: requests,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		count, err := rl.incrWithTTL(r.Context(), fmt.Sprintf("rl:purchase:%s", ip))
		if err != nil {
			// Limiter failure must not take down the purchase path.
			rl.log.Warn("Rate limiter unavailable", "error", err.Error(), "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(rl.requests) {
			monitoring.RateLimitRejectionsTotal.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many purchase attempts, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) incrWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := rl.store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := rl.store.Expire(ctx, key, rl.window); err != nil {
			return count, err
		}
	}

	return count, nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type redisCounterStore struct {
	client *redis.Client
}

func (s *redisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *redisCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}
