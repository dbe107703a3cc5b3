package verifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/service"
)

// Outcome is the discriminated result of checking a request's credential.
// Calling code branches on Authenticated; the verify failure detail stays in
// the logs.
type Outcome struct {
	Authenticated bool
	Subject       string
}

// Unauthenticated is the zero Outcome.
var Unauthenticated = Outcome{}

// Verifier decides whether a presented token authenticates a request. It
// consults the local cache first and falls back to the authority; the cache
// is never load-bearing for correctness.
type Verifier struct {
	cache     Cache
	client    *Client
	freshness time.Duration
	logger    *zap.Logger
	metrics   *service.Metrics
}

// NewVerifier constructs a Verifier with the given cache and authority
// client. freshness bounds how long a positive result may be reused.
func NewVerifier(cache Cache, client *Client, freshness time.Duration, logger *zap.Logger, metrics *service.Metrics) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if freshness <= 0 {
		freshness = 2 * time.Minute
	}
	return &Verifier{
		cache:     cache,
		client:    client,
		freshness: freshness,
		logger:    logger,
		metrics:   metrics,
	}
}

// Check produces the authentication outcome for a presented token. An empty
// token, a failed verification, or an authority error all yield
// Unauthenticated; only the reason differs in the logs.
func (v *Verifier) Check(ctx context.Context, token string) Outcome {
	if token == "" {
		return Unauthenticated
	}

	start := time.Now()
	if entry, ok := v.cache.Lookup(ctx, token); ok {
		v.metrics.RecordCacheOperation(true, time.Since(start))
		return Outcome{Authenticated: true, Subject: entry.Subject}
	}
	v.metrics.RecordCacheOperation(false, time.Since(start))

	result, err := v.client.Verify(ctx, token)
	if err != nil {
		v.logger.Warn("authority verification unavailable", zap.Error(err))
		return Unauthenticated
	}
	if result.Status != models.StatusValid {
		v.logger.Info("token rejected by authority", zap.String("status", string(result.Status)))
		return Unauthenticated
	}

	// Without the token's expiry there is no way to bound the entry's
	// lifetime by it, so the result is not cached at all.
	if result.ExpiresAt == nil {
		return Outcome{Authenticated: true, Subject: result.Username}
	}

	cachedUntil := time.Now().UTC().Add(v.freshness)
	if result.ExpiresAt.Before(cachedUntil) {
		cachedUntil = *result.ExpiresAt
	}
	entry := Entry{
		Subject:     result.Username,
		TokenID:     result.TokenID,
		CachedUntil: cachedUntil,
	}
	if err := v.cache.Store(ctx, token, entry); err != nil {
		v.logger.Warn("failed to cache verification result", zap.Error(err))
	}

	return Outcome{Authenticated: true, Subject: result.Username}
}

// HandleRevocation applies a pushed revocation event to the cache. Always
// succeeds from the sender's point of view, even when nothing matched.
func (v *Verifier) HandleRevocation(ctx context.Context, event models.RevocationEvent) {
	if err := v.cache.Invalidate(ctx, event.TokenID); err != nil {
		v.logger.Warn("failed to invalidate cache entry",
			zap.String("token_id", event.TokenID), zap.Error(err))
		return
	}
	v.logger.Info("cache entry invalidated by revocation event",
		zap.String("subject", event.Subject), zap.String("token_id", event.TokenID))
}
