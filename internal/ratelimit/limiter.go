// Package ratelimit throttles the public sign-up route per client IP
// with a redis-backed fixed window. This is boundary policy on top of
// the captcha gate, not part of the subscription core, and it fails
// open: with redis down a sign-up still has to pass verification, so
// letting it through beats refusing real subscribers.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
)

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewLimiter connects to redis and returns a limiter allowing the
// configured number of requests per window.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	window := cfg.Window()
	if window <= 0 {
		window = time.Minute
	}
	requests := cfg.Requests
	if requests <= 0 {
		requests = 10
	}
	return &Limiter{
		client:   redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

// Allow reports whether the caller identified by key may proceed. The
// window boundary lives in the key, so a counter expires naturally
// once its window has rolled over.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	windowSec := int64(l.window / time.Second)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, l.now().Unix()/windowSec)

	pipe := l.client.Pipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limiter unavailable, failing open", "error", err.Error())
		return true
	}

	return count.Val() <= int64(l.requests)
}

// Close releases the redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}
