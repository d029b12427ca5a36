package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/cozy-blogs/carajillo/internal/config"
)

func setupLimiter(t *testing.T, requests, windowSeconds int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	l := NewLimiter(config.RateLimitConfig{
		RedisAddr:     mr.Addr(),
		Requests:      requests,
		WindowSeconds: windowSeconds,
	})
	t.Cleanup(func() { l.Close() })

	return l, mr
}

func TestAllowUnderLimit(t *testing.T) {
	l, _ := setupLimiter(t, 3, 60)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Error("4th request in the window should be limited")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := setupLimiter(t, 1, 60)
	ctx := context.Background()

	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("First request for first key should be allowed")
	}
	if !l.Allow(ctx, "5.6.7.8") {
		t.Error("First request for second key should be allowed")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Error("Second request for first key should be limited")
	}
}

func TestWindowRollover(t *testing.T) {
	l, _ := setupLimiter(t, 1, 60)
	ctx := context.Background()

	base := time.Now()
	l.now = func() time.Time { return base }

	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("First request should be allowed")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("Second request in the same window should be limited")
	}

	// Jump past the window boundary; a fresh bucket opens.
	l.now = func() time.Time { return base.Add(2 * time.Minute) }

	if !l.Allow(ctx, "1.2.3.4") {
		t.Error("Request in a new window should be allowed")
	}
}

// With redis down the limiter must fail open rather than lock everyone
// out of the sign-up form.
func TestFailOpen(t *testing.T) {
	l, mr := setupLimiter(t, 1, 60)
	ctx := context.Background()

	mr.Close()

	if !l.Allow(ctx, "1.2.3.4") {
		t.Error("Expected fail-open when redis is unreachable")
	}
	if !l.Allow(ctx, "1.2.3.4") {
		t.Error("Expected fail-open on every attempt while redis is down")
	}
}
