package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signet-id/signet/internal/models"
)

const revocationKeyPrefix = "signet:revocation:"

// RedisRevocationStore keeps revocation records in Redis so multiple
// authority replicas share one table. Records carry a TTL equal to the token
// lifetime, so expiry cleanup is handled by Redis itself.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore constructs a Redis-backed revocation table.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Put records a freshly issued token with a TTL matching its expiry.
func (s *RedisRevocationStore) Put(ctx context.Context, rec *models.RevocationRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal revocation record %s: %w", rec.TokenID, err)
	}
	if err := s.client.Set(ctx, revocationKeyPrefix+rec.TokenID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", rec.TokenID, err)
	}
	return nil
}

// Get returns the record for tokenID or ErrNotFound.
func (s *RedisRevocationStore) Get(ctx context.Context, tokenID string) (*models.RevocationRecord, error) {
	raw, err := s.client.Get(ctx, revocationKeyPrefix+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", tokenID, err)
	}

	var rec models.RevocationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal revocation record %s: %w", tokenID, err)
	}
	return &rec, nil
}

// Delete removes the record, revoking the token.
func (s *RedisRevocationStore) Delete(ctx context.Context, tokenID string) error {
	removed, err := s.client.Del(ctx, revocationKeyPrefix+tokenID).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", tokenID, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}
