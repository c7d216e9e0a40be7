package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

// RequireRole lets the request through when the session carries one of roles.
// It must run after Session.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "You are not allowed to use this route."))
		c.Abort()
	}
}
