package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/repository"
	"github.com/signet-id/signet/internal/token"
	appErrors "github.com/signet-id/signet/pkg/errors"
)

// dummyHash is compared against when the username is unknown so that the
// unknown-user and wrong-password paths cost the same. Hash of a random
// string, never a real credential.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// AuthorityConfig defines configuration for the token authority.
type AuthorityConfig struct {
	TokenTTL time.Duration
	// Stateless skips the revocation table entirely: tokens stay valid
	// until natural expiry and revocation always reports not found.
	Stateless bool
}

// Authority is the IdP-side component owning token issuance, verification,
// revocation and user registration. All mutable state lives in the injected
// stores; the Authority itself is safe for concurrent use.
type Authority struct {
	identities  repository.IdentityStore
	revocations repository.RevocationStore
	codec       *token.Codec
	notifier    *Notifier
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *Metrics
	config      AuthorityConfig
}

// NewAuthority constructs an Authority instance. The notifier and metrics
// may be nil when propagation or instrumentation is not wanted.
func NewAuthority(identities repository.IdentityStore, revocations repository.RevocationStore, codec *token.Codec, notifier *Notifier, validate *validator.Validate, logger *zap.Logger, metrics *Metrics, config AuthorityConfig) *Authority {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 2 * time.Hour
	}
	return &Authority{
		identities:  identities,
		revocations: revocations,
		codec:       codec,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		config:      config,
	}
}

// Issue authenticates the credentials and mints a session token. Unknown
// user and wrong password produce one indistinguishable error.
func (a *Authority) Issue(ctx context.Context, username, password string) (*models.IssuedToken, error) {
	creds := models.Credentials{Username: username, Password: password}
	if err := a.validator.Struct(creds); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	user, err := a.identities.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn the same bcrypt work as the known-user path.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	issuedAt := time.Now().UTC()
	signed, claims, err := a.codec.Encode(username, issuedAt, a.config.TokenTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint token")
	}

	if !a.config.Stateless {
		rec := &models.RevocationRecord{
			TokenID:   claims.TokenID(),
			Subject:   username,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		if err := a.revocations.Put(ctx, rec); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record issued token")
		}
	}

	a.logger.Info("token issued", zap.String("username", username), zap.String("token_id", claims.TokenID()))
	a.metrics.RecordIssued()

	return &models.IssuedToken{
		Token:     signed,
		Subject:   username,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks a presented token and returns its claims. It never mutates
// authority state; two sequential calls on the same valid token agree.
func (a *Authority) Verify(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	claims, err := a.codec.Decode(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			if claims != nil {
				a.logger.Info("expired token presented", zap.String("username", claims.Username))
			}
			a.metrics.RecordVerification(models.StatusExpired)
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
		default:
			a.metrics.RecordVerification(models.StatusInvalid)
			return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "")
		}
	}

	subject := claims.Username
	if subject == "" {
		subject = claims.Subject
		claims.Username = subject
	}

	if !a.config.Stateless {
		rec, err := a.revocations.Get(ctx, claims.TokenID())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				a.logger.Info("revoked token presented", zap.String("username", subject), zap.String("token_id", claims.TokenID()))
				a.metrics.RecordVerification(models.StatusRevoked)
				return nil, appErrors.Clone(appErrors.ErrTokenRevoked, "")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check revocation record")
		}
		if rec.Expired(time.Now().UTC()) {
			a.metrics.RecordVerification(models.StatusExpired)
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
		}
	}

	a.metrics.RecordVerification(models.StatusValid)
	return claims, nil
}

// Revoke invalidates the presented token before its natural expiry. The
// second revocation of the same token reports ErrRevocationNotFound, which
// callers may treat as a non-fatal no-op.
func (a *Authority) Revoke(ctx context.Context, tokenString string) error {
	claims, err := a.codec.Decode(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return appErrors.Clone(appErrors.ErrTokenExpired, "")
		}
		return appErrors.Clone(appErrors.ErrTokenInvalid, "")
	}

	if a.config.Stateless {
		return appErrors.Clone(appErrors.ErrRevocationNotFound, "revocation disabled in stateless mode")
	}

	subject := claims.Username
	if subject == "" {
		subject = claims.Subject
	}

	if err := a.revocations.Delete(ctx, claims.TokenID()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrRevocationNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete revocation record")
	}

	a.logger.Info("token revoked", zap.String("username", subject), zap.String("token_id", claims.TokenID()))
	a.metrics.RecordRevoked()

	if a.notifier != nil {
		a.notifier.Notify(models.RevocationEvent{Subject: subject, TokenID: claims.TokenID()})
	}
	return nil
}

// Register stores a new identity with a salted bcrypt hash of the password.
func (a *Authority) Register(ctx context.Context, username, password string) error {
	creds := models.Credentials{Username: username, Password: password}
	if err := a.validator.Struct(creds); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.identities.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			a.logger.Warn("registration with existing username", zap.String("username", username))
			return appErrors.Clone(appErrors.ErrUsernameTaken, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	a.logger.Info("user registered", zap.String("username", username))
	return nil
}

// Subscribe registers a relying-party webhook endpoint for revocation
// events. Subscription is idempotent.
func (a *Authority) Subscribe(url string) error {
	req := models.SubscribeRequest{URL: url}
	if err := a.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook url")
	}
	if a.notifier == nil {
		return appErrors.Clone(appErrors.ErrInternal, "revocation propagation not configured")
	}
	a.notifier.Subscribe(url)
	return nil
}
