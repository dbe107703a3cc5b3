package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/middleware"
	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/verifier"
)

func newSiteFixture(t *testing.T, cookieSecure bool) (*gin.Engine, verifier.Cache, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authorityCalls := 0
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logout" {
			w.WriteHeader(http.StatusOK)
			return
		}
		authorityCalls++
		expiresAt := time.Now().UTC().Add(time.Hour)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.VerifyResult{
			Status:    models.StatusValid,
			Username:  "user1",
			TokenID:   "jti-1",
			ExpiresAt: &expiresAt,
		})
	}))
	t.Cleanup(authority.Close)

	cache := verifier.NewMemoryCache()
	client := verifier.NewClient(authority.URL, time.Second)
	v := verifier.NewVerifier(cache, client, time.Minute, zap.NewNop(), nil)

	profiles := NewProfileStore(map[string]models.Profile{
		"user1": {Name: "User One", Email: "user1@example.com"},
	})
	h := NewSiteHandler("service-a", "http://rp.local", v, client, profiles, zap.NewNop(), cookieSecure)

	router := gin.New()
	protected := router.Group("/", middleware.RequireSession(v, client.LoginURL, "http://rp.local"))
	protected.GET("/", h.Home)
	protected.GET("/profile", h.Profile)
	protected.POST("/change-password", h.ChangePassword)
	router.GET("/logout", h.Logout)
	router.POST("/logout-webhook", h.LogoutWebhook)
	return router, cache, &authorityCalls
}

func siteGet(router *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: tok})
	}
	router.ServeHTTP(w, req)
	return w
}

func TestSiteHomeGreetsSubject(t *testing.T) {
	router, _, _ := newSiteFixture(t, false)

	w := siteGet(router, "/", "token-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "welcome user1")
	assert.Contains(t, w.Body.String(), "service-a")
}

func TestSiteProfile(t *testing.T) {
	router, _, _ := newSiteFixture(t, false)

	w := siteGet(router, "/profile", "token-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User One")
}

func TestSiteChangePassword(t *testing.T) {
	router, _, _ := newSiteFixture(t, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/change-password",
		strings.NewReader("new_password=changed1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "token-1"})
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/change-password", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "token-1"})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSiteLogoutForwardsToAuthority(t *testing.T) {
	router, _, _ := newSiteFixture(t, false)

	w := siteGet(router, "/logout", "token-1")
	assert.Equal(t, http.StatusOK, w.Code)

	// Without a token there is nothing to revoke, go straight to login.
	w = siteGet(router, "/logout", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login")
}

func TestSiteLogoutClearsCookieWithSecureAttribute(t *testing.T) {
	router, _, _ := newSiteFixture(t, true)

	w := siteGet(router, "/logout", "token-1")
	require.Equal(t, http.StatusOK, w.Code)

	var cleared *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.CookieName {
			cleared = cookie
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Secure)
	assert.True(t, cleared.HttpOnly)
}

func TestLogoutWebhookAlwaysAcknowledges(t *testing.T) {
	router, cache, calls := newSiteFixture(t, false)

	// Warm the cache.
	require.Equal(t, http.StatusOK, siteGet(router, "/", "token-1").Code)
	require.Equal(t, 1, *calls)

	body := strings.NewReader(`{"subject":"user1","token_id":"jti-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout-webhook", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := cache.Lookup(context.Background(), "token-1")
	assert.False(t, ok)

	// Malformed payloads are acknowledged too.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/logout-webhook", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
