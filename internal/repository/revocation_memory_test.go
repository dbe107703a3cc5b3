package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/models"
)

func TestMemoryRevocationStoreLifecycle(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	rec := &models.RevocationRecord{
		TokenID:   "jti-1",
		Subject:   "alice",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Subject)

	require.NoError(t, store.Delete(ctx, "jti-1"))

	_, err = store.Get(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Revoking again reports not found: the terminal state is absorbing.
	assert.ErrorIs(t, store.Delete(ctx, "jti-1"), ErrNotFound)
}

func TestMemoryRevocationStoreLazyExpiry(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	rec := &models.RevocationRecord{
		TokenID:   "jti-old",
		Subject:   "alice",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.Put(ctx, rec))

	_, err := store.Get(ctx, "jti-old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRevocationStoreSweep(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &models.RevocationRecord{TokenID: "live", Subject: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Put(ctx, &models.RevocationRecord{TokenID: "dead", Subject: "b", ExpiresAt: now.Add(-time.Hour)}))

	removed := store.Sweep(now)
	assert.Equal(t, 1, removed)

	_, err := store.Get(ctx, "live")
	assert.NoError(t, err)
}
