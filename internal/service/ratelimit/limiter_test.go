package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		d, _ := limiter.Allow(ctx, "user-1")
		if !d.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	d, _ := limiter.Allow(ctx, "user-1")
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("third hit should be blocked, got %+v", d)
	}

	other, _ := limiter.Allow(ctx, "user-2")
	if !other.Allowed {
		t.Fatalf("keys must be counted independently")
	}

	now = now.Add(time.Minute)
	d, _ = limiter.Allow(ctx, "user-1")
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("window should reset, got %+v", d)
	}
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func TestRedisLimiterUsesPrefixedKey(t *testing.T) {
	counter := &fakeCounter{}
	limiter := NewRedisLimiter(counter, 1, time.Hour, zap.NewNop())

	d, err := limiter.Allow(context.Background(), "user-1")
	if err != nil || !d.Allowed {
		t.Fatalf("first hit should pass: %+v %v", d, err)
	}
	d, _ = limiter.Allow(context.Background(), "user-1")
	if d.Allowed {
		t.Fatalf("second hit should be blocked")
	}
	if counter.counts["pulse:ratelimit:user-1"] != 2 {
		t.Fatalf("expected prefixed key, got %v", counter.counts)
	}
}

func TestRedisLimiterPropagatesErrors(t *testing.T) {
	limiter := NewRedisLimiter(&fakeCounter{err: errors.New("down")}, 1, time.Hour, nil)
	if _, err := limiter.Allow(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error")
	}
}
