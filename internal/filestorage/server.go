// Package filestorage serves the blob endpoints of the file-storage tier.
package filestorage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/pkg/id"
	"github.com/shaderhub/shaderhub-api/pkg/modelzip"
	"github.com/shaderhub/shaderhub-api/pkg/storage"
)

// Server exposes a BlobStore to the API tier.
type Server struct {
	blobs       storage.BlobStore
	logger      *zap.Logger
	maxFormSize int64
}

// NewServer constructs a Server. maxFormSize caps multipart bodies in bytes.
func NewServer(blobs storage.BlobStore, logger *zap.Logger, maxFormSize int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{blobs: blobs, logger: logger, maxFormSize: maxFormSize}
}

// Register mounts the file tier routes on r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/health", s.health)
	r.POST("/object", s.limitBody, s.storeObject)
	r.POST("/object/:id", s.fetchObject)
	r.DELETE("/object/:id", s.deleteObject)
	r.POST("/thumbnails", s.thumbnails)
	r.POST("/picture", s.limitBody, s.storePicture)
	r.GET("/picture/:id", s.fetchPicture)
	r.DELETE("/picture/:id", s.deletePicture)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) limitBody(c *gin.Context) {
	if s.maxFormSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFormSize)
	}
	c.Next()
}

func (s *Server) storeObject(c *gin.Context) {
	objectID := c.PostForm("objectId")
	if !id.Valid(objectID) {
		c.String(http.StatusBadRequest, "invalid object id")
		return
	}
	archive, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "file is required")
		return
	}

	ctx := c.Request.Context()
	if err := s.putPart(c, storage.KindFiles, objectID, archive); err != nil {
		s.logger.Error("store archive failed", zap.String("object_id", objectID), zap.Error(err))
		c.String(http.StatusInternalServerError, "could not store object")
		return
	}

	thumbnail, err := c.FormFile("thumbnail")
	if err != nil {
		c.Status(http.StatusOK)
		return
	}
	if err := s.putPart(c, storage.KindThumbnails, objectID, thumbnail); err != nil {
		s.logger.Error("store thumbnail failed", zap.String("object_id", objectID), zap.Error(err))
		if delErr := s.blobs.Delete(ctx, storage.KindFiles, objectID); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Error("rollback archive failed", zap.String("object_id", objectID), zap.Error(delErr))
		}
		c.String(http.StatusInternalServerError, "could not store thumbnail")
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) putPart(c *gin.Context, kind storage.Kind, blobID string, header *multipart.FileHeader) error {
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.blobs.Put(c.Request.Context(), kind, blobID, file, header.Size, contentType)
}

func (s *Server) fetchObject(c *gin.Context) {
	objectID := c.Param("id")
	if !id.Valid(objectID) {
		c.Status(http.StatusNotFound)
		return
	}
	rc, err := s.blobs.Open(c.Request.Context(), storage.KindFiles, objectID)
	if err != nil {
		s.blobError(c, "open archive", objectID, err)
		return
	}
	defer rc.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+objectID+`.zip"`)
	c.DataFromReader(http.StatusOK, -1, "application/zip", rc, nil)
}

func (s *Server) deleteObject(c *gin.Context) {
	objectID := c.Param("id")
	if !id.Valid(objectID) {
		c.Status(http.StatusNotFound)
		return
	}
	ctx := c.Request.Context()
	for _, kind := range []storage.Kind{storage.KindFiles, storage.KindThumbnails} {
		if err := s.blobs.Delete(ctx, kind, objectID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("delete blob failed", zap.String("kind", string(kind)), zap.String("object_id", objectID), zap.Error(err))
			c.String(http.StatusInternalServerError, "could not delete object")
			return
		}
	}
	c.Status(http.StatusOK)
}

func (s *Server) thumbnails(c *gin.Context) {
	ids := c.PostFormArray("thumbnails")
	for _, raw := range ids {
		if !id.Valid(raw) {
			c.String(http.StatusBadRequest, "invalid thumbnail id")
			return
		}
	}

	open := func(ctx context.Context, thumbID string) (io.ReadCloser, bool, error) {
		rc, err := s.blobs.Open(ctx, storage.KindThumbnails, thumbID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return rc, true, nil
	}

	c.Header("Content-Type", "application/zip")
	c.Status(http.StatusOK)
	w := bufio.NewWriter(c.Writer)
	if err := modelzip.BundleThumbnails(c.Request.Context(), w, ids, open); err != nil {
		// Headers are already sent; the truncated zip is rejected client side.
		s.logger.Error("bundle thumbnails failed", zap.Int("count", len(ids)), zap.Error(err))
		return
	}
	if err := w.Flush(); err != nil {
		s.logger.Warn("flush thumbnails failed", zap.Error(err))
	}
}

func (s *Server) storePicture(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "file is required")
		return
	}
	pictureID, err := id.New()
	if err != nil {
		s.logger.Error("generate picture id failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "could not store picture")
		return
	}
	if err := s.putPart(c, storage.KindPictures, pictureID, header); err != nil {
		s.logger.Error("store picture failed", zap.String("picture_id", pictureID), zap.Error(err))
		c.String(http.StatusInternalServerError, "could not store picture")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": pictureID})
}

func (s *Server) fetchPicture(c *gin.Context) {
	pictureID := c.Param("id")
	if !id.Valid(pictureID) {
		c.Status(http.StatusNotFound)
		return
	}
	rc, err := s.blobs.Open(c.Request.Context(), storage.KindPictures, pictureID)
	if err != nil {
		s.blobError(c, "open picture", pictureID, err)
		return
	}
	defer rc.Close() //nolint:errcheck

	// Sniff the content type from the head of the blob, then replay it.
	head := bufio.NewReaderSize(rc, 3072)
	peek, _ := head.Peek(3072)
	c.DataFromReader(http.StatusOK, -1, mimetype.Detect(peek).String(), head, nil)
}

func (s *Server) deletePicture(c *gin.Context) {
	pictureID := c.Param("id")
	if !id.Valid(pictureID) {
		c.Status(http.StatusNotFound)
		return
	}
	err := s.blobs.Delete(c.Request.Context(), storage.KindPictures, pictureID)
	if err != nil {
		s.blobError(c, "delete picture", pictureID, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) blobError(c *gin.Context, op, blobID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	s.logger.Error(op+" failed", zap.String("id", blobID), zap.Error(err))
	c.Status(http.StatusInternalServerError)
}
