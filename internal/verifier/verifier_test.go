package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/models"
)

type fakeAuthority struct {
	verifyCalls int64
	result      models.VerifyResult
}

func (f *fakeAuthority) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.verifyCalls, 1)
		status := http.StatusOK
		if f.result.Status != models.StatusValid {
			status = http.StatusForbidden
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(f.result)
	})
	return httptest.NewServer(mux)
}

func (f *fakeAuthority) calls() int64 {
	return atomic.LoadInt64(&f.verifyCalls)
}

func validResult(subject, tokenID string, expiresAt time.Time) models.VerifyResult {
	return models.VerifyResult{
		Status:    models.StatusValid,
		Username:  subject,
		TokenID:   tokenID,
		ExpiresAt: &expiresAt,
	}
}

func TestVerifierMissPopulatesCache(t *testing.T) {
	authority := &fakeAuthority{result: validResult("alice", "jti-1", time.Now().UTC().Add(time.Hour))}
	srv := authority.server()
	defer srv.Close()

	v := NewVerifier(NewMemoryCache(), NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	outcome := v.Check(ctx, "token-1")
	require.True(t, outcome.Authenticated)
	assert.Equal(t, "alice", outcome.Subject)
	assert.EqualValues(t, 1, authority.calls())

	// Second check is served from cache, no round-trip.
	outcome = v.Check(ctx, "token-1")
	require.True(t, outcome.Authenticated)
	assert.EqualValues(t, 1, authority.calls())
}

func TestVerifierEmptyToken(t *testing.T) {
	authority := &fakeAuthority{result: validResult("alice", "jti-1", time.Now().UTC().Add(time.Hour))}
	srv := authority.server()
	defer srv.Close()

	v := NewVerifier(NewMemoryCache(), NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)

	outcome := v.Check(context.Background(), "")
	assert.False(t, outcome.Authenticated)
	assert.EqualValues(t, 0, authority.calls())
}

func TestVerifierRejectedToken(t *testing.T) {
	authority := &fakeAuthority{result: models.VerifyResult{Status: models.StatusRevoked}}
	srv := authority.server()
	defer srv.Close()

	cache := NewMemoryCache()
	v := NewVerifier(cache, NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)

	outcome := v.Check(context.Background(), "token-1")
	assert.False(t, outcome.Authenticated)

	// Negative results are not cached; the next check asks again.
	v.Check(context.Background(), "token-1")
	assert.EqualValues(t, 2, authority.calls())
}

func TestVerifierAuthorityUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewVerifier(NewMemoryCache(), NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)

	outcome := v.Check(context.Background(), "token-1")
	assert.False(t, outcome.Authenticated)
}

func TestVerifierRevocationEventPurgesCache(t *testing.T) {
	authority := &fakeAuthority{result: validResult("alice", "jti-1", time.Now().UTC().Add(time.Hour))}
	srv := authority.server()
	defer srv.Close()

	v := NewVerifier(NewMemoryCache(), NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	require.True(t, v.Check(ctx, "token-1").Authenticated)
	assert.EqualValues(t, 1, authority.calls())

	v.HandleRevocation(ctx, models.RevocationEvent{Subject: "alice", TokenID: "jti-1"})

	// The cached entry is gone; the next check goes back to the
	// authority, which remains the ground truth.
	v.Check(ctx, "token-1")
	assert.EqualValues(t, 2, authority.calls())
}

func TestVerifierSkipsCacheWithoutExpiry(t *testing.T) {
	authority := &fakeAuthority{result: models.VerifyResult{
		Status:   models.StatusValid,
		Username: "alice",
		TokenID:  "jti-1",
	}}
	srv := authority.server()
	defer srv.Close()

	cache := NewMemoryCache()
	v := NewVerifier(cache, NewClient(srv.URL, time.Second), time.Minute, zap.NewNop(), nil)
	ctx := context.Background()

	require.True(t, v.Check(ctx, "token-1").Authenticated)
	_, ok := cache.Lookup(ctx, "token-1")
	assert.False(t, ok)

	// Every check goes back to the authority.
	require.True(t, v.Check(ctx, "token-1").Authenticated)
	assert.EqualValues(t, 2, authority.calls())
}

func TestVerifierCacheBoundedByTokenExpiry(t *testing.T) {
	expiresAt := time.Now().UTC().Add(10 * time.Second)
	authority := &fakeAuthority{result: validResult("alice", "jti-1", expiresAt)}
	srv := authority.server()
	defer srv.Close()

	cache := NewMemoryCache()
	v := NewVerifier(cache, NewClient(srv.URL, time.Second), time.Hour, zap.NewNop(), nil)

	require.True(t, v.Check(context.Background(), "token-1").Authenticated)

	entry, ok := cache.Lookup(context.Background(), "token-1")
	require.True(t, ok)
	assert.True(t, entry.CachedUntil.Equal(expiresAt) || entry.CachedUntil.Before(expiresAt))
}
