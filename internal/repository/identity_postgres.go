package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/signet-id/signet/internal/models"
)

// PostgresIdentityStore provides database access to the users table.
type PostgresIdentityStore struct {
	db *sqlx.DB
}

// NewPostgresIdentityStore creates a new instance of PostgresIdentityStore.
func NewPostgresIdentityStore(db *sqlx.DB) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db}
}

// Create inserts a user. A unique-constraint violation on the username maps
// to ErrDuplicate.
func (s *PostgresIdentityStore) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByUsername returns a user by username.
func (s *PostgresIdentityStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT username, password_hash, created_at FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := s.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}
