package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

const maxWebhookBody = 1 << 20

type authEventService interface {
	HandleAuthEvent(ctx context.Context, payload []byte, headers http.Header) error
}

// WebhookHandler receives signed events from the identity provider.
type WebhookHandler struct {
	service authEventService
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(svc authEventService) *WebhookHandler {
	return &WebhookHandler{service: svc}
}

// Auth godoc
// @Summary Identity provider webhook
// @Description Verifies the signature and mirrors new users
// @Tags Webhooks
// @Accept json
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /webhooks/auth [post]
func (h *WebhookHandler) Auth(c *gin.Context) {
	// The signature covers the exact bytes, so the body is read raw.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable body"))
		return
	}
	if err := h.service.HandleAuthEvent(c.Request.Context(), payload, c.Request.Header); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
