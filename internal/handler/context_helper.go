package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/middleware"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

// viewerID returns the signed in user id, or "" for anonymous requests.
func viewerID(c *gin.Context) string {
	if claims, ok := middleware.CurrentClaims(c); ok {
		return claims.UserID
	}
	return ""
}

// requireUser writes 401 and returns false when no session is attached.
func requireUser(c *gin.Context) (string, bool) {
	userID := viewerID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
