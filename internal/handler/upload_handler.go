package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/service"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/response"
)

type uploadService interface {
	Catalog(ctx context.Context, userID string) ([]dto.CatalogEntry, error)
	Upload(ctx context.Context, userID string, in service.UploadInput) (*dto.UploadResult, error)
}

// UploadHandler serves the upload form and accepts new objects.
type UploadHandler struct {
	service uploadService
	maxBody int64
}

// NewUploadHandler constructs an upload handler. maxBody caps the multipart body.
func NewUploadHandler(svc uploadService, maxBody int64) *UploadHandler {
	return &UploadHandler{service: svc, maxBody: maxBody}
}

// Catalog godoc
// @Summary Upload catalog
// @Description Tags usable by the caller with their attribute types
// @Tags Upload
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /upload/catalog [get]
func (h *UploadHandler) Catalog(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	entries, err := h.service.Catalog(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Upload godoc
// @Summary Upload object
// @Description Multipart form with a metadata JSON field, a zip file and an optional thumbnail
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param metadata formData string true "dto.UploadMetadata as JSON"
// @Param file formData file true "Zip archive"
// @Param thumbnail formData file false "Preview image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /upload/objects [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.Error(c, uploadFormError(err, "multipart form expected"))
		return
	}

	var in service.UploadInput
	if err := json.Unmarshal([]byte(c.PostForm("metadata")), &in.Metadata); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "metadata must be valid JSON"))
		return
	}

	archive, err := c.FormFile("file")
	if err != nil {
		response.Error(c, uploadFormError(err, "file is required"))
		return
	}
	if in.Archive, err = readFormFile(archive); err != nil {
		response.Error(c, appErrors.Failed(err, "could not read upload"))
		return
	}
	in.ArchiveName = archive.Filename

	if thumbnail, err := c.FormFile("thumbnail"); err == nil {
		if in.Thumbnail, err = readFormFile(thumbnail); err != nil {
			response.Error(c, appErrors.Failed(err, "could not read upload"))
			return
		}
		in.ThumbnailName = thumbnail.Filename
	}

	result, err := h.service.Upload(c.Request.Context(), userID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return io.ReadAll(f)
}

func uploadFormError(err error, missing string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrValidation, "upload exceeds the maximum size")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, missing)
}
