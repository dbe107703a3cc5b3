package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "signet-idp", cfg.Token.Issuer)
	assert.Equal(t, 2*time.Hour, cfg.Token.TTL)
	assert.False(t, cfg.Token.Stateless)
	assert.Equal(t, 8000, cfg.IdP.Port)
	assert.Equal(t, BackendMemory, cfg.IdP.IdentityBackend)
	assert.Equal(t, BackendMemory, cfg.IdP.RevocationStore)
	assert.Equal(t, 8001, cfg.RelyingParty.Port)
	assert.Equal(t, "http://localhost:8000", cfg.RelyingParty.AuthorityBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.RelyingParty.FreshnessWindow)
	assert.Equal(t, 5*time.Second, cfg.RelyingParty.VerifyTimeout)
	assert.Equal(t, 2, cfg.Webhook.MaxRetries)
	assert.Equal(t, 64, cfg.Webhook.DeliveryBuffer)
	assert.Empty(t, cfg.Webhook.Endpoints)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("TOKEN_SECRET", "env-secret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("TOKEN_STATELESS", "true")
	t.Setenv("IDP_REVOCATION_STORE", BackendRedis)
	t.Setenv("RP_FRESHNESS_WINDOW", "45s")
	t.Setenv("WEBHOOK_ENDPOINTS", "http://a.local/hook, http://b.local/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "env-secret", cfg.Token.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Token.TTL)
	assert.True(t, cfg.Token.Stateless)
	assert.Equal(t, BackendRedis, cfg.IdP.RevocationStore)
	assert.Equal(t, 45*time.Second, cfg.RelyingParty.FreshnessWindow)
	assert.Equal(t, []string{"http://a.local/hook", "http://b.local/hook"}, cfg.Webhook.Endpoints)
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Token.TTL)
}
