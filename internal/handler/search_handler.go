package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type searchHistoryService interface {
	List(ctx context.Context, userID string) ([]models.SearchHistory, error)
	Add(ctx context.Context, userID string, req dto.AddSearchRequest) error
}

// SearchHandler stores recent search queries per user.
type SearchHandler struct {
	service searchHistoryService
}

// NewSearchHandler constructs a search history handler.
func NewSearchHandler(svc searchHistoryService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// History godoc
// @Summary Recent searches
// @Tags Search
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /search/history [get]
func (h *SearchHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Add godoc
// @Summary Remember a search
// @Tags Search
// @Accept json
// @Param payload body dto.AddSearchRequest true "Query"
// @Success 204
// @Router /search/history [post]
func (h *SearchHandler) Add(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.AddSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.Add(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
