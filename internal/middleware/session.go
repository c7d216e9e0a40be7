package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

// SessionCookie is the cookie the identity provider sets on browser sessions.
const SessionCookie = "__session"

type tokenValidator interface {
	ValidateToken(token string) (*models.SessionClaims, error)
}

// Session requires a valid session token.
func Session(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalSession attaches claims when a valid token is present but does not block.
func OptionalSession(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := sessionToken(c); ok {
			if claims, err := auth.ValidateToken(token); err == nil {
				c.Set(ContextUserKey, claims)
			}
		}
		c.Next()
	}
}

// CurrentClaims returns the session claims stored by Session or OptionalSession.
func CurrentClaims(c *gin.Context) (*models.SessionClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.SessionClaims)
	return claims, ok && claims != nil
}

// sessionToken prefers the Authorization header and falls back to the session cookie.
func sessionToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
