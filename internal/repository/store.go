package repository

import (
	"context"
	"errors"

	"github.com/signet-id/signet/internal/models"
)

// Store sentinels, mapped to the domain error taxonomy by the service layer.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// IdentityStore persists registered users for the token authority.
type IdentityStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// RevocationStore tracks live tokens by token ID. Deleting a record revokes
// the token; a missing record means the token was revoked or never tracked.
type RevocationStore interface {
	Put(ctx context.Context, rec *models.RevocationRecord) error
	Get(ctx context.Context, tokenID string) (*models.RevocationRecord, error)
	Delete(ctx context.Context, tokenID string) error
}
