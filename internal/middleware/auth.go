package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/signet-id/signet/internal/verifier"
)

// ContextSubjectKey is the gin context key holding the authenticated subject.
const ContextSubjectKey = "authSubject"

// CookieName carries the session token between the IdP and relying parties.
const CookieName = "auth_token"

// ExtractToken pulls the credential from the request: the session cookie
// first, then the Authorization header (with or without a Bearer prefix).
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return header
}

// RequireSession protects relying-party routes. Unauthenticated requests
// are redirected to the IdP login carrying the return URL; authenticated
// ones proceed with the subject on the context.
func RequireSession(v *verifier.Verifier, loginURL func(returnTo string) string, publicURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := v.Check(c.Request.Context(), ExtractToken(c))
		if !outcome.Authenticated {
			returnTo := strings.TrimRight(publicURL, "/") + c.Request.URL.Path
			c.Redirect(http.StatusFound, loginURL(returnTo))
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, outcome.Subject)
		c.Next()
	}
}

// Subject returns the authenticated subject stored by RequireSession.
func Subject(c *gin.Context) string {
	if v, exists := c.Get(ContextSubjectKey); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
