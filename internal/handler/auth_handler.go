package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/signet-id/signet/internal/middleware"
	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/service"
	appErrors "github.com/signet-id/signet/pkg/errors"
	"github.com/signet-id/signet/pkg/response"
)

// loginForm is the minimal page served on GET /login. Posting back to the
// same URL preserves the redirect_url query parameter.
const loginForm = `<!DOCTYPE html>
<html>
<body>
<form method="post">
    Username: <input type="text" name="username"><br>
    Password: <input type="password" name="password"><br>
    <input type="submit" value="Login">
</form>
</body>
</html>`

// AuthHandler wires the identity provider's HTTP endpoints to the token
// authority.
type AuthHandler struct {
	authority    *service.Authority
	logger       *zap.Logger
	cookieSecure bool
}

// NewAuthHandler creates a new handler. cookieSecure should be true
// everywhere except local development over plain HTTP.
func NewAuthHandler(authority *service.Authority, logger *zap.Logger, cookieSecure bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authority: authority, logger: logger, cookieSecure: cookieSecure}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginForm))
}

// Login authenticates the posted credentials, sets the session cookie and
// redirects back to the requesting service.
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	redirectURL := c.Query("redirect_url")

	issued, err := h.authority.Issue(c.Request.Context(), username, password)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidCredentials, ""))
		return
	}

	maxAge := int(issued.ExpiresAt.Sub(issued.IssuedAt).Seconds())
	c.SetCookie(middleware.CookieName, issued.Token, maxAge, "/", "", h.cookieSecure, true)

	if redirectURL != "" {
		c.Redirect(http.StatusFound, redirectURL)
		return
	}
	response.JSON(c, http.StatusOK, issued)
}

// Logout revokes the presented token and clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	tok := middleware.ExtractToken(c)
	if tok == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is missing"))
		return
	}

	if err := h.authority.Revoke(c.Request.Context(), tok); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not recognized"))
		return
	}

	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out successfully"})
}

// Verify checks the presented token and reports its status. The body is the
// flat cross-service contract, not the envelope: relying parties written
// against the original wire format keep working.
func (h *AuthHandler) Verify(c *gin.Context) {
	tok := middleware.ExtractToken(c)
	if tok == "" {
		c.JSON(http.StatusForbidden, models.VerifyResult{Status: models.StatusInvalid})
		return
	}

	claims, err := h.authority.Verify(c.Request.Context(), tok)
	if err != nil {
		c.JSON(http.StatusForbidden, models.VerifyResult{Status: verifyStatus(err)})
		return
	}

	expiresAt := claims.ExpiresAt.Time
	c.JSON(http.StatusOK, models.VerifyResult{
		Status:    models.StatusValid,
		Username:  claims.Username,
		TokenID:   claims.TokenID(),
		ExpiresAt: &expiresAt,
	})
}

// Register creates a new identity from the posted form.
func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if err := h.authority.Register(c.Request.Context(), username, password); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"message": "user registered successfully"})
}

// Subscribe registers a relying-party webhook endpoint for revocation
// events.
func (h *AuthHandler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}

	if err := h.authority.Subscribe(req.URL); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "subscribed"})
}

func verifyStatus(err error) models.VerificationStatus {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrTokenExpired.Code:
		return models.StatusExpired
	case appErrors.ErrTokenRevoked.Code:
		return models.StatusRevoked
	default:
		return models.StatusInvalid
	}
}
