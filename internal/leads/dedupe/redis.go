package dedupe

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	knownPhonesKey = "leads:phones"

	// DefaultCacheTTL bounds how long a number stays known after it was last
	// confirmed by Postgres.
	DefaultCacheTTL = 24 * time.Hour
)

// RedisCache keeps known phone numbers in a sorted set scored by the unix time
// at which each entry expires. Expired members count as unknown and are
// trimmed on the next write.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, key: knownPhonesKey, ttl: ttl, now: time.Now}
}

// Known returns the phones present in the set and not yet expired.
func (c *RedisCache) Known(ctx context.Context, phones []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(phones) == 0 {
		return known, nil
	}

	expiries, err := c.client.ZMScore(ctx, c.key, phones...).Result()
	if err != nil {
		return nil, err
	}
	now := float64(c.now().Unix())
	for i, expiresAt := range expiries {
		if expiresAt > now {
			known[phones[i]] = struct{}{}
		}
	}
	return known, nil
}

// Add marks phones as known for the cache TTL and drops expired members.
func (c *RedisCache) Add(ctx context.Context, phones []string) error {
	if len(phones) == 0 {
		return nil
	}
	now := c.now()
	expiresAt := float64(now.Add(c.ttl).Unix())
	members := make([]redis.Z, len(phones))
	for i, p := range phones {
		members[i] = redis.Z{Score: expiresAt, Member: p}
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, c.key, members...)
		pipe.ZRemRangeByScore(ctx, c.key, "-inf", strconv.FormatInt(now.Unix(), 10))
		return nil
	})
	return err
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
