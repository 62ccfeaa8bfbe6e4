package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// CacheService is the shared redis handle for rate limits, trend usage and
// cached preferences.
type CacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return NewCacheServiceWithClient(client, logger), nil
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(client redis.UniversalClient, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{client: client, logger: logger}
}

// Get decodes the JSON value at key into dest. found is false for a missing key.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("get failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

// IncrWindow increments a fixed-window counter. The window expiry is set
// only when the key is created. It returns the new count and the time left.
func (c *CacheService) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		c.logger.Error("Cache incr failed", zap.String("key", key), zap.Error(err))
		return 0, 0, errors.NewCacheError("incr failed", "incr", key, err)
	}
	return incr.Val(), ttl.Val(), nil
}

// ZAddWithExpiry adds a scored member and refreshes the key expiry.
func (c *CacheService) ZAddWithExpiry(ctx context.Context, key string, score float64, member string, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		c.logger.Error("Cache zadd failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("zadd failed", "zadd", key, err)
	}
	return nil
}

// ZRemBelow removes members scored strictly below min.
func (c *CacheService) ZRemBelow(ctx context.Context, key string, min float64) (int64, error) {
	removed, err := c.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", min)).Result()
	if err != nil {
		c.logger.Error("Cache zremrangebyscore failed", zap.String("key", key), zap.Error(err))
		return 0, errors.NewCacheError("zremrangebyscore failed", "zremrangebyscore", key, err)
	}
	return removed, nil
}

// ZMembers returns every member of a sorted set in score order.
func (c *CacheService) ZMembers(ctx context.Context, key string) ([]redis.Z, error) {
	members, err := c.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		c.logger.Error("Cache zrange failed", zap.String("key", key), zap.Error(err))
		return nil, errors.NewCacheError("zrange failed", "zrange", key, err)
	}
	return members, nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}

func (c *CacheService) IsConnected(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

func (c *CacheService) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for Redis to be ready")
		case <-ticker.C:
			if c.IsConnected(ctx) {
				return nil
			}
		}
	}
}
