package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, userID string) (*dto.Profile, error)
	UpdateCredentials(ctx context.Context, userID string, req dto.UpdateCredentialsRequest) error
	UploadPicture(ctx context.Context, userID string, data []byte, filename string) (*dto.PictureResult, error)
}

// ProfileHandler serves public profiles and account changes.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Public profile
// @Tags Profiles
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profiles/{userId} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateCredentials godoc
// @Summary Rename the caller
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.UpdateCredentialsRequest true "New username"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /profiles/me [put]
func (h *ProfileHandler) UpdateCredentials(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.UpdateCredentials(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadPicture godoc
// @Summary Upload profile picture
// @Tags Profiles
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 201 {object} response.Envelope
// @Router /profiles/me/picture [post]
func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Failed(err, "could not read upload"))
		return
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, appErrors.Failed(err, "could not read upload"))
		return
	}

	result, err := h.service.UploadPicture(c.Request.Context(), userID, data, header.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
