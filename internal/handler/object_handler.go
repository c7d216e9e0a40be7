package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type objectService interface {
	Detail(ctx context.Context, objectID, viewerID string) (*dto.ObjectDetail, error)
	Delete(ctx context.Context, objectID, userID string) error
	DownloadURL(ctx context.Context, objectID, viewerID string) (*dto.DownloadURL, error)
	OpenArchive(ctx context.Context, objectID, token string) (io.ReadCloser, error)
}

type visibilityService interface {
	RequestVisibility(ctx context.Context, userID, objectID string, req dto.VisibilityRequest) (*dto.VisibilityResult, error)
}

// ObjectHandler exposes single object endpoints.
type ObjectHandler struct {
	objects    objectService
	visibility visibilityService
}

// NewObjectHandler constructs an object handler.
func NewObjectHandler(objects objectService, visibility visibilityService) *ObjectHandler {
	return &ObjectHandler{objects: objects, visibility: visibility}
}

// Detail godoc
// @Summary Object information
// @Description Object metadata with tags, attributes, uploader and favourite state
// @Tags Objects
// @Produce json
// @Param id path string true "Object ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /objects/{id} [get]
func (h *ObjectHandler) Detail(c *gin.Context) {
	detail, err := h.objects.Detail(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Delete godoc
// @Summary Delete object
// @Tags Objects
// @Produce json
// @Param id path string true "Object ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /objects/{id} [delete]
func (h *ObjectHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.objects.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Signed archive link
// @Description Returns a short lived URL for the object archive
// @Tags Objects
// @Produce json
// @Param id path string true "Object ID"
// @Success 200 {object} response.Envelope
// @Router /objects/{id}/download-url [get]
func (h *ObjectHandler) DownloadURL(c *gin.Context) {
	link, err := h.objects.DownloadURL(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// Archive godoc
// @Summary Download archive
// @Description Streams the zip archive behind a signed token
// @Tags Objects
// @Produce application/zip
// @Param id path string true "Object ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /objects/{id}/archive [get]
func (h *ObjectHandler) Archive(c *gin.Context) {
	objectID := c.Param("id")
	archive, err := h.objects.OpenArchive(c.Request.Context(), objectID, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer archive.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, -1, "application/zip", archive, map[string]string{
		"Content-Disposition": `attachment; filename="` + objectID + `.zip"`,
	})
}

// RequestVisibility godoc
// @Summary Change object visibility
// @Description Owners ask for an object to become public or private
// @Tags Objects
// @Accept json
// @Produce json
// @Param id path string true "Object ID"
// @Param payload body dto.VisibilityRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Router /objects/{id}/visibility [post]
func (h *ObjectHandler) RequestVisibility(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.visibility.RequestVisibility(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
