package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPostgresIdentityStoreFindByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresIdentityStore(db)

	rows := sqlmock.NewRows([]string{"username", "password_hash", "created_at"}).
		AddRow("alice", "hash", time.Now().UTC())
	mock.ExpectQuery("SELECT username, password_hash, created_at FROM users").
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := store.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIdentityStoreFindNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresIdentityStore(db)

	mock.ExpectQuery("SELECT username, password_hash, created_at FROM users").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "created_at"}))

	_, err := store.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresIdentityStoreCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresIdentityStore(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "hash", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "hash", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresIdentityStoreCreate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresIdentityStore(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("bob", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Create(context.Background(), &models.User{Username: "bob", PasswordHash: "hash", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
