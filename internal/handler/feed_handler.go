package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/middleware"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type feedService interface {
	GetInfinite(ctx context.Context, q dto.FeedQuery) (*dto.FeedPage, bool, error)
	Initial(ctx context.Context) ([]dto.FeedItem, bool, error)
}

type thumbnailService interface {
	Thumbnails(ctx context.Context, req dto.ThumbnailsRequest) (io.ReadCloser, error)
}

// FeedHandler serves the public object feed.
type FeedHandler struct {
	feed       feedService
	thumbnails thumbnailService
}

// NewFeedHandler constructs a feed handler.
func NewFeedHandler(feed feedService, thumbnails thumbnailService) *FeedHandler {
	return &FeedHandler{feed: feed, thumbnails: thumbnails}
}

// Initial godoc
// @Summary Landing page objects
// @Description The newest public objects
// @Tags Objects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /objects/initial [get]
func (h *FeedHandler) Initial(c *gin.Context) {
	items, hit, err := h.feed.Initial(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Infinite godoc
// @Summary Browse public objects
// @Description Cursor paginated public objects, newest first
// @Tags Objects
// @Produce json
// @Param limit query int false "Page size (1-100)"
// @Param cursor query string false "Opaque cursor"
// @Param direction query string false "forward or backward"
// @Param query query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /objects [get]
func (h *FeedHandler) Infinite(c *gin.Context) {
	var q dto.FeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	page, hit, err := h.feed.GetInfinite(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, page.Items, &response.Cursor{Next: page.NextCursor, Prev: page.PrevCursor}, middleware.ExtractMeta(c))
}

// Thumbnails godoc
// @Summary Bundle thumbnails
// @Description Streams one zip with the thumbnail of each id
// @Tags Objects
// @Accept json
// @Produce application/zip
// @Param payload body dto.ThumbnailsRequest true "Object ids"
// @Success 200 {file} binary
// @Router /thumbnails [post]
func (h *FeedHandler) Thumbnails(c *gin.Context) {
	var req dto.ThumbnailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	bundle, err := h.thumbnails.Thumbnails(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer bundle.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, -1, "application/zip", bundle, map[string]string{
		"Content-Disposition": `attachment; filename="thumbnails.zip"`,
	})
}
