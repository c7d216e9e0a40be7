package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/service"
	"github.com/shaderhub/shaderhub-api/pkg/export"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type moderationService interface {
	Pending(ctx context.Context) ([]dto.PendingRequest, error)
	SetStatus(ctx context.Context, requestID string, req dto.SetStatusRequest) error
	Export(ctx context.Context, rawFormat string) ([]byte, export.Format, error)
}

// RequestHandler exposes the admin moderation queue.
type RequestHandler struct {
	service moderationService
	now     func() time.Time
}

// NewRequestHandler constructs a moderation handler.
func NewRequestHandler(svc moderationService) *RequestHandler {
	return &RequestHandler{service: svc, now: time.Now}
}

// Pending godoc
// @Summary Pending visibility requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) Pending(c *gin.Context) {
	items, err := h.service.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// SetStatus godoc
// @Summary Moderate a request
// @Description Accepting a request publishes the object
// @Tags Requests
// @Accept json
// @Param id path string true "Request ID"
// @Param payload body dto.SetStatusRequest true "New status"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [patch]
func (h *RequestHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export pending requests
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	body, format, err := h.service.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := service.ExportFilename(format, h.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), body)
}
