package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusmatch/campusmatch/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikeCount generates the Redis key for a profile's liked-you count.
func (c *RedisCache) KeyForLikeCount(profileID uint64) string {
	return fmt.Sprintf("likes:count:%d", profileID)
}

func (c *RedisCache) SetLikeCount(ctx context.Context, profileID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForLikeCount(profileID), count, time.Hour).Err()
}

func (c *RedisCache) GetLikeCount(ctx context.Context, profileID uint64) (int64, bool, error) {
	key := c.KeyForLikeCount(profileID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (c *RedisCache) BumpLikeCount(ctx context.Context, profileID uint64, delta int64) {
	key := c.KeyForLikeCount(profileID)
	if delta >= 0 {
		_, _ = c.Client.IncrBy(ctx, key, delta).Result()
	} else {
		_, _ = c.Client.DecrBy(ctx, key, -delta).Result()
	}
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
}

// --- daily quota counters ---

// KeyForSwipeQuota keys the per-day swipe counter, e.g. quota:swipes:7:2026-08-31.
func (c *RedisCache) KeyForSwipeQuota(profileID uint64, day time.Time) string {
	return fmt.Sprintf("quota:swipes:%d:%s", profileID, day.UTC().Format("2006-01-02"))
}

// KeyForRewindQuota keys the per-day rewind counter.
func (c *RedisCache) KeyForRewindQuota(profileID uint64, day time.Time) string {
	return fmt.Sprintf("quota:rewinds:%d:%s", profileID, day.UTC().Format("2006-01-02"))
}

// GetCounter returns the current value of a counter key, 0 if absent.
func (c *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// IncrDaily increments a daily counter and pins its expiry to end of UTC day.
func (c *RedisCache) IncrDaily(ctx context.Context, key string, now time.Time) (int64, error) {
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.Client.ExpireAt(ctx, key, EndOfDay(now)).Err()
	return n, nil
}

// DecrCounter gives back one unit of a counter, e.g. after an increment
// that overshot its limit or whose guarded write failed.
func (c *RedisCache) DecrCounter(ctx context.Context, key string) error {
	return c.Client.Decr(ctx, key).Err()
}

// EndOfDay returns the first instant of the next UTC day, when daily
// allowances reset.
func EndOfDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// --- pub/sub ---

// ChannelForUser names the pub/sub channel carrying a profile's events.
func (c *RedisCache) ChannelForUser(profileID uint64) string {
	return fmt.Sprintf("user:events:%d", profileID)
}

func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription. The caller owns closing it.
func (c *RedisCache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.Client.Subscribe(ctx, channels...)
}
