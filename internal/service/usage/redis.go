package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
)

// SortedSetCache is the slice of the cache service RedisStore needs.
type SortedSetCache interface {
	ZAddWithExpiry(ctx context.Context, key string, score float64, member string, ttl time.Duration) error
	ZRemBelow(ctx context.Context, key string, min float64) (int64, error)
	ZMembers(ctx context.Context, key string) ([]redis.Z, error)
}

// RedisStore keeps one sorted set per user, scored by unix milliseconds.
// Members are "{ms}|{cost}|{uuid}" so equal costs at the same instant stay
// distinct.
type RedisStore struct {
	cache  SortedSetCache
	window time.Duration
	logger *zap.Logger
}

func NewRedisStore(cache SortedSetCache, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{cache: cache, window: constants.TrendConfig.Window, logger: logger}
}

func (s *RedisStore) Record(ctx context.Context, userID string, cost float64, at time.Time) error {
	ms := at.UnixMilli()
	member := fmt.Sprintf("%d|%s|%s", ms, strconv.FormatFloat(cost, 'f', -1, 64), uuid.NewString())
	if err := s.cache.ZAddWithExpiry(ctx, key(userID), float64(ms), member, constants.TrendConfig.KeyTTL); err != nil {
		return err
	}
	return s.Prune(ctx, userID, at)
}

func (s *RedisStore) Summary(ctx context.Context, userID string, now time.Time) (domain.TrendSummary, error) {
	if err := s.Prune(ctx, userID, now); err != nil {
		return domain.TrendSummary{}, err
	}

	members, err := s.cache.ZMembers(ctx, key(userID))
	if err != nil {
		return domain.TrendSummary{}, err
	}

	list := make([]record, 0, len(members))
	for _, z := range members {
		cost, ok := parseCost(z.Member)
		if !ok {
			s.logger.Warn("Skipping malformed trend usage member", zap.String("user_id", userID), zap.Any("member", z.Member))
			continue
		}
		list = append(list, record{at: time.UnixMilli(int64(z.Score)), cost: cost})
	}
	return summarize(list), nil
}

// Prune drops entries older than the window. Entries exactly at the window
// edge are kept, matching MemoryStore.
func (s *RedisStore) Prune(ctx context.Context, userID string, now time.Time) error {
	cutoff := now.Add(-s.window).UnixMilli()
	_, err := s.cache.ZRemBelow(ctx, key(userID), float64(cutoff))
	return err
}

func key(userID string) string {
	return constants.TrendConfig.KeyPrefix + userID
}

func parseCost(member any) (float64, bool) {
	str, ok := member.(string)
	if !ok {
		return 0, false
	}
	parts := strings.SplitN(str, "|", 3)
	if len(parts) != 3 {
		return 0, false
	}
	cost, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}
	return cost, true
}
