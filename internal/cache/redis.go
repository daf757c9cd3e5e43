package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/observability"
)

// Compile-time check to verify that RedisQueryCache implements QueryCache.
var _ QueryCache = (*RedisQueryCache)(nil)

// scanBatch is the COUNT hint passed to SCAN while clearing keys.
const scanBatch = 500

// globEscaper escapes the characters SCAN MATCH treats as patterns.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// RedisQueryCache is the L2 tier shared by every replica. Values are stored
// as decimal strings under "<prefix><user>:<type>:<kind>".
type RedisQueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisQueryCache wraps an existing Redis client.
func NewRedisQueryCache(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisQueryCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisQueryCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisQueryCache) redisKey(key QueryKey) string {
	return c.prefix + key.String()
}

// Get reads the aggregate. Redis failures and undecodable values count as misses.
func (c *RedisQueryCache) Get(ctx context.Context, key QueryKey) (decimal.Decimal, bool) {
	raw, err := c.client.Get(ctx, c.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		observability.QueryCacheRequests.WithLabelValues("l2", "miss").Inc()
		return decimal.Zero, false
	}
	if err != nil {
		observability.QueryCacheRequests.WithLabelValues("l2", "error").Inc()
		c.logger.Warn("l2 cache read failed", slog.String("key", key.String()), slog.Any("error", err))
		return decimal.Zero, false
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		observability.QueryCacheRequests.WithLabelValues("l2", "error").Inc()
		c.logger.Warn("l2 cache holds a malformed value",
			slog.String("key", key.String()),
			slog.String("value", raw),
		)
		return decimal.Zero, false
	}

	observability.QueryCacheRequests.WithLabelValues("l2", "hit").Inc()
	return v, true
}

// Set writes the aggregate with the L2 TTL. A failed write is logged only.
func (c *RedisQueryCache) Set(ctx context.Context, key QueryKey, value decimal.Decimal) {
	if err := c.client.Set(ctx, c.redisKey(key), value.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("l2 cache write failed", slog.String("key", key.String()), slog.Any("error", err))
	}
}

// Clear deletes every key under the cache prefix.
func (c *RedisQueryCache) Clear(ctx context.Context) error {
	return c.deleteMatching(ctx, globEscaper.Replace(c.prefix)+"*")
}

// ClearUser deletes every key of one user.
func (c *RedisQueryCache) ClearUser(ctx context.Context, userID string) error {
	return c.deleteMatching(ctx, globEscaper.Replace(c.prefix+userID+":")+"*")
}

// deleteMatching walks the keyspace with SCAN so Redis is never blocked by KEYS.
func (c *RedisQueryCache) deleteMatching(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return flush()
}
