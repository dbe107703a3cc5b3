package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationStatus is the outcome reported by the verify endpoint.
type VerificationStatus string

const (
	StatusValid   VerificationStatus = "valid"
	StatusInvalid VerificationStatus = "invalid"
	StatusExpired VerificationStatus = "expired"
	StatusRevoked VerificationStatus = "revoked"
)

// TokenClaims is the JWT payload for session tokens. The token ID doubles as
// the key of the server-side revocation record.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *TokenClaims) TokenID() string {
	return c.ID
}

// RevocationRecord tracks a live token on the authority side. A token whose
// record is gone verifies as revoked even before its natural expiry.
type RevocationRecord struct {
	TokenID   string    `db:"token_id" json:"token_id"`
	Subject   string    `db:"subject" json:"subject"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the record is past its recorded expiry.
func (r *RevocationRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// VerifyResult is the JSON body returned by POST /verify. TokenID and
// ExpiresAt are included on success so relying parties can bound their cache
// entries and match revocation events without decoding the token themselves.
type VerifyResult struct {
	Status    VerificationStatus `json:"status"`
	Username  string             `json:"username,omitempty"`
	TokenID   string             `json:"token_id,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

// RevocationEvent is the payload pushed to relying-party webhooks when a
// token is revoked. TokenID identifies the exact session so a delayed event
// cannot evict a newer login for the same subject.
type RevocationEvent struct {
	Subject string `json:"subject"`
	TokenID string `json:"token_id"`
}
