package handler

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/middleware"
	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/verifier"
	appErrors "github.com/signet-id/signet/pkg/errors"
	"github.com/signet-id/signet/pkg/response"
)

// ProfileStore holds the relying party's incidental per-user data. It
// stands in for whatever user-facing state a real service would keep.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewProfileStore seeds a profile store.
func NewProfileStore(seed map[string]models.Profile) *ProfileStore {
	profiles := make(map[string]models.Profile, len(seed))
	for k, v := range seed {
		profiles[k] = v
	}
	return &ProfileStore{profiles: profiles}
}

// Get returns the profile for username, if any.
func (s *ProfileStore) Get(username string) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[username]
	return p, ok
}

// SiteHandler serves a relying party's routes. Authentication decisions are
// made by the verification middleware; handlers only consume the subject.
type SiteHandler struct {
	name         string
	publicURL    string
	verifier     *verifier.Verifier
	client       *verifier.Client
	profiles     *ProfileStore
	logger       *zap.Logger
	cookieSecure bool
}

// NewSiteHandler creates a relying-party handler. publicURL is this
// service's own address, used as the return address for login redirects.
// cookieSecure should match the attribute the IdP set the cookie with.
func NewSiteHandler(name, publicURL string, v *verifier.Verifier, client *verifier.Client, profiles *ProfileStore, logger *zap.Logger, cookieSecure bool) *SiteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteHandler{name: name, publicURL: publicURL, verifier: v, client: client, profiles: profiles, logger: logger, cookieSecure: cookieSecure}
}

// Home greets the authenticated user.
func (h *SiteHandler) Home(c *gin.Context) {
	subject := middleware.Subject(c)
	response.JSON(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("This is %s, welcome %s! You are logged in.", h.name, subject),
	})
}

// Profile returns the local profile for the authenticated user.
func (h *SiteHandler) Profile(c *gin.Context) {
	subject := middleware.Subject(c)
	profile, ok := h.profiles.Get(subject)
	if !ok {
		response.JSON(c, http.StatusOK, models.Profile{})
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// ChangePassword accepts a password change for the authenticated user. The
// actual credential update is the identity provider's business; this route
// only demonstrates a protected mutation.
func (h *SiteHandler) ChangePassword(c *gin.Context) {
	subject := middleware.Subject(c)

	var req models.ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil || req.NewPassword == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "new password required"))
		return
	}

	h.logger.Info("password change accepted", zap.String("username", subject))
	response.JSON(c, http.StatusOK, gin.H{"message": "password changed successfully"})
}

// Logout forwards the credential to the identity provider and clears the
// local cookie.
func (h *SiteHandler) Logout(c *gin.Context) {
	tok := middleware.ExtractToken(c)
	if tok == "" {
		c.Redirect(http.StatusFound, h.client.LoginURL(h.publicURL))
		c.Abort()
		return
	}

	if err := h.client.Logout(c.Request.Context(), tok); err != nil {
		h.logger.Warn("authority logout failed", zap.Error(err))
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "logout failed"))
		return
	}

	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out successfully"})
}

// LogoutWebhook receives revocation events from the identity provider and
// purges matching cache entries. Receipt is always acknowledged with 200,
// even when nothing matched.
func (h *SiteHandler) LogoutWebhook(c *gin.Context) {
	var event models.RevocationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		// Malformed pushes are logged and acknowledged; the sender
		// retries nothing on our behalf.
		h.logger.Warn("malformed revocation event", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": false})
		return
	}

	h.verifier.HandleRevocation(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
