package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix   = "signet:verify:"
	cacheIndexPrefix = "signet:verify:id:"
)

// RedisCache shares verification results across relying-party replicas.
// Tokens are hashed before use as keys so the raw bearer credential never
// lands in Redis. Any Redis failure degrades to a cache miss.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache constructs a Redis-backed verification cache.
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Lookup returns the cached entry for token. Redis TTLs enforce the
// freshness bound; an expired entry is simply gone.
func (c *RedisCache) Lookup(ctx context.Context, token string) (*Entry, bool) {
	raw, err := c.client.Get(ctx, cacheKey(token)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache lookup failed", zap.Error(err))
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("cache entry corrupt", zap.Error(err))
		return nil, false
	}
	if !time.Now().UTC().Before(entry.CachedUntil) {
		return nil, false
	}
	return &entry, true
}

// Store inserts the entry with a TTL matching its freshness bound, plus a
// token-ID index used by Invalidate.
func (c *RedisCache) Store(ctx context.Context, token string, entry Entry) error {
	ttl := time.Until(entry.CachedUntil)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	key := cacheKey(token)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	pipe.Set(ctx, cacheIndexPrefix+entry.TokenID, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store entry: %w", err)
	}
	return nil
}

// Invalidate removes the cached entry for the given token ID.
func (c *RedisCache) Invalidate(ctx context.Context, tokenID string) error {
	indexKey := cacheIndexPrefix + tokenID
	key, err := c.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis index lookup %s: %w", tokenID, err)
	}
	if err := c.client.Del(ctx, key, indexKey).Err(); err != nil {
		return fmt.Errorf("redis invalidate %s: %w", tokenID, err)
	}
	return nil
}
