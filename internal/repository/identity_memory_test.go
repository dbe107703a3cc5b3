package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/models"
)

func TestMemoryIdentityStoreCreateAndFind(t *testing.T) {
	store := NewMemoryIdentityStore()
	ctx := context.Background()

	err := store.Create(ctx, &models.User{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)

	user, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestMemoryIdentityStoreDuplicate(t *testing.T) {
	store := NewMemoryIdentityStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.User{Username: "alice", PasswordHash: "hash"}))
	err := store.Create(ctx, &models.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryIdentityStoreNotFound(t *testing.T) {
	store := NewMemoryIdentityStore()

	_, err := store.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
