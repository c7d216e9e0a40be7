package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

// Cursor carries opaque continuation tokens for cursor paginated lists.
type Cursor struct {
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// Envelope represents the common response contract.
type Envelope struct {
	Data   interface{}            `json:"data,omitempty"`
	Error  *appErrors.Error       `json:"error,omitempty"`
	Cursor *Cursor                `json:"cursor,omitempty"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional cursor metadata.
func JSON(c *gin.Context, status int, data interface{}, cursor *Cursor, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Cursor: cursor}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
// Causes of server failures are attached to the gin context for the request logger
// and never serialised.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError && appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
