package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/signet-id/signet/internal/models"
)

// Decode failure modes. Expired tokens are reported separately because the
// claims are still structurally intact and callers log the subject.
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// Codec signs and verifies session tokens. It is stateless; every call is a
// pure function of its inputs plus the freshly minted token ID.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec constructs a Codec with the given HMAC secret.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Encode mints a signed token for subject, valid from issuedAt for ttl.
// Identical inputs produce identical tokens except for the random token ID.
func (c *Codec) Encode(subject string, issuedAt time.Time, ttl time.Duration) (string, *models.TokenClaims, error) {
	claims := &models.TokenClaims{
		Username: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode parses and verifies a token. On ErrExpired the returned claims are
// still populated; on any other error they are nil.
func (c *Codec) Decode(tokenString string) (*models.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			if parsed != nil {
				if claims, ok := parsed.Claims.(*models.TokenClaims); ok {
					return claims, ErrExpired
				}
			}
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*models.TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" && claims.Username == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
