package repository

import (
	"context"
	"sync"
	"time"

	"github.com/signet-id/signet/internal/models"
)

// MemoryIdentityStore is an in-process user store. Reads dominate writes, so
// a reader-writer lock guards the map. Suitable for prototypes and tests;
// production deployments use the PostgreSQL store.
type MemoryIdentityStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryIdentityStore constructs an empty in-memory user store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{users: make(map[string]models.User)}
}

// Create stores a new user, failing with ErrUsernameTaken semantics via a
// sentinel the caller maps.
func (s *MemoryIdentityStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return ErrDuplicate
	}
	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = stored
	return nil
}

// FindByUsername returns the stored user or ErrNotFound.
func (s *MemoryIdentityStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}
