package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type libraryService interface {
	Library(ctx context.Context, userID string) (map[string]dto.LibraryGroup, error)
	Favourite(ctx context.Context, userID, objectID string) (*dto.FavouriteState, error)
	ToggleFavourite(ctx context.Context, userID, objectID string) (*dto.FavouriteState, error)
	UserCollections(ctx context.Context, userID, objectID string) ([]dto.UserCollection, error)
	AddToCollection(ctx context.Context, userID, objectID string, req dto.CollectionDiff) error
	CreateCollection(ctx context.Context, userID, objectID string, req dto.CreateCollectionRequest) (*models.Tag, error)
}

// LibraryHandler serves favourites and personal collections. Every route needs a session.
type LibraryHandler struct {
	service libraryService
}

// NewLibraryHandler constructs a library handler.
func NewLibraryHandler(svc libraryService) *LibraryHandler {
	return &LibraryHandler{service: svc}
}

// Library godoc
// @Summary Library
// @Description Objects grouped by the caller's tags
// @Tags Library
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /library [get]
func (h *LibraryHandler) Library(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	groups, err := h.service.Library(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

// Favourite godoc
// @Summary Favourite state
// @Tags Library
// @Produce json
// @Param objectId path string true "Object ID"
// @Success 200 {object} response.Envelope
// @Router /library/{objectId}/favourite [get]
func (h *LibraryHandler) Favourite(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.service.Favourite(c.Request.Context(), userID, c.Param("objectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// ToggleFavourite godoc
// @Summary Toggle favourite
// @Tags Library
// @Produce json
// @Param objectId path string true "Object ID"
// @Success 200 {object} response.Envelope
// @Router /library/{objectId}/favourite [post]
func (h *LibraryHandler) ToggleFavourite(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.service.ToggleFavourite(c.Request.Context(), userID, c.Param("objectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// Collections godoc
// @Summary Collections of the caller
// @Description Each collection flags whether the object is in it
// @Tags Library
// @Produce json
// @Param objectId path string true "Object ID"
// @Success 200 {object} response.Envelope
// @Router /library/{objectId}/collections [get]
func (h *LibraryHandler) Collections(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	collections, err := h.service.UserCollections(c.Request.Context(), userID, c.Param("objectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, collections)
}

// AddToCollection godoc
// @Summary Apply collection diff
// @Tags Library
// @Accept json
// @Produce json
// @Param objectId path string true "Object ID"
// @Param payload body dto.CollectionDiff true "Tag id to membership"
// @Success 204
// @Router /library/{objectId}/collections [patch]
func (h *LibraryHandler) AddToCollection(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CollectionDiff
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.AddToCollection(c.Request.Context(), userID, c.Param("objectId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateCollection godoc
// @Summary Create collection
// @Description Creates a collection holding the object
// @Tags Library
// @Accept json
// @Produce json
// @Param objectId path string true "Object ID"
// @Param payload body dto.CreateCollectionRequest true "Collection"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /library/{objectId}/collections [post]
func (h *LibraryHandler) CreateCollection(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	tag, err := h.service.CreateCollection(c.Request.Context(), userID, c.Param("objectId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tag)
}
