package models

import "time"

// User represents a registered identity in the authority's user store. Only
// the salted hash of the password is ever stored.
type User struct {
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
