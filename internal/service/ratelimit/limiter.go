// Package ratelimit implements the per-user fixed window limiter used by the
// HTTP surface.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed window limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = constants.RateLimitConfig.Limit
	}
	if windowSize <= 0 {
		windowSize = constants.RateLimitConfig.Window
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		buckets: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &window{resetAt: now.Add(l.window)}
		l.buckets[key] = b
		l.sweep(now)
	}
	b.count++

	return decide(b.count, l.limit, b.resetAt.Sub(now)), nil
}

// sweep drops expired buckets. must be called with mu held
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}

// WindowCounter is the slice of the cache service RedisLimiter needs.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisLimiter shares counters across instances through redis.
type RedisLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

func NewRedisLimiter(counter WindowCounter, limit int, windowSize time.Duration, logger *zap.Logger) *RedisLimiter {
	if limit <= 0 {
		limit = constants.RateLimitConfig.Limit
	}
	if windowSize <= 0 {
		windowSize = constants.RateLimitConfig.Window
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{counter: counter, limit: limit, window: windowSize, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.counter.IncrWindow(ctx, constants.RateLimitConfig.KeyPrefix+key, l.window)
	if err != nil {
		l.logger.Warn("Rate limit counter unavailable", zap.String("key", key), zap.Error(err))
		return Decision{}, err
	}
	if ttl < 0 {
		ttl = l.window
	}
	return decide(int(count), l.limit, ttl), nil
}

func decide(count, limit int, resetIn time.Duration) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= limit, Remaining: remaining, ResetIn: resetIn}
}
