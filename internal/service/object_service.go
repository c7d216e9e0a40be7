package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/id"
)

type objectStore interface {
	FindByID(ctx context.Context, id string) (*models.Object, error)
	ListTags(ctx context.Context, objectID string) ([]dto.TagSummary, error)
	ListAttributes(ctx context.Context, objectID string) ([]dto.AttributeSummary, error)
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
}

type favouriteReader interface {
	IsFavourite(ctx context.Context, userID, objectID string) (bool, error)
}

type archiveSource interface {
	FetchObject(ctx context.Context, objectID string) (io.ReadCloser, error)
	Thumbnails(ctx context.Context, ids []string) (io.ReadCloser, error)
}

type downloadSigner interface {
	Generate(objectID string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// ObjectService serves single objects: detail, deletion, archive downloads and
// thumbnail bundles.
type ObjectService struct {
	objects      objectStore
	favourites   favouriteReader
	files        archiveSource
	signer       downloadSigner
	queue        jobEnqueuer
	feed         feedInvalidator
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	downloadBase string
}

// ObjectServiceDeps groups the collaborators of ObjectService.
type ObjectServiceDeps struct {
	Objects    objectStore
	Favourites favouriteReader
	Files      archiveSource
	Signer     downloadSigner
	Queue      jobEnqueuer
	Feed       feedInvalidator
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	// DownloadBase is the route prefix archive links are built on, e.g. /api/v1.
	DownloadBase string
}

// NewObjectService constructs an ObjectService.
func NewObjectService(deps ObjectServiceDeps) *ObjectService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ObjectService{
		objects:      deps.Objects,
		favourites:   deps.Favourites,
		files:        deps.Files,
		signer:       deps.Signer,
		queue:        deps.Queue,
		feed:         deps.Feed,
		metrics:      deps.Metrics,
		validator:    deps.Validator,
		logger:       deps.Logger,
		downloadBase: deps.DownloadBase,
	}
}

// Detail returns an object with its tags, attributes and the viewer's favourite flag.
// Private objects are only visible to their owner. viewerID may be empty.
func (s *ObjectService) Detail(ctx context.Context, objectID, viewerID string) (*dto.ObjectDetail, error) {
	object, err := s.visibleObject(ctx, objectID, viewerID)
	if err != nil {
		return nil, err
	}

	tags, err := s.objects.ListTags(ctx, objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	attributes, err := s.objects.ListAttributes(ctx, objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}

	detail := &dto.ObjectDetail{Object: *object, Tags: tags, Attributes: attributes}
	if viewerID != "" {
		favourite, err := s.favourites.IsFavourite(ctx, viewerID, objectID)
		if err != nil {
			return nil, appErrors.Failed(err, "Fetch could not be performed.")
		}
		detail.Favourite = favourite
	}
	return detail, nil
}

func (s *ObjectService) visibleObject(ctx context.Context, objectID, viewerID string) (*models.Object, error) {
	if !id.Valid(objectID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}
	object, err := s.objects.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "object not found")
		}
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	if object.Visibility != models.VisibilityPublic && object.UserID != viewerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}
	return object, nil
}

// Delete removes an object owned by userID. Blob removal runs on the job queue.
func (s *ObjectService) Delete(ctx context.Context, objectID, userID string) error {
	if !id.Valid(objectID) {
		return appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}
	deleted, err := s.objects.DeleteOwned(ctx, objectID, userID)
	if err != nil {
		return appErrors.Failed(err, "Delete could not be performed.")
	}
	if !deleted {
		if _, err := s.objects.FindByID(ctx, objectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "object not found")
			}
			return appErrors.Failed(err, "Delete could not be performed.")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can delete an object")
	}

	if err := s.queue.Enqueue(newJob(JobDeleteObjectBlobs, objectID)); err != nil {
		s.logger.Error("failed to enqueue blob deletion", zap.String("object_id", objectID), zap.Error(err))
	}
	s.feed.InvalidateFeed(ctx)
	s.logger.Info("object deleted", zap.String("object_id", objectID), zap.String("user_id", userID))
	return nil
}

// DownloadURL issues a short-lived link to the archive of a visible object.
func (s *ObjectService) DownloadURL(ctx context.Context, objectID, viewerID string) (*dto.DownloadURL, error) {
	if _, err := s.visibleObject(ctx, objectID, viewerID); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "failed to sign download link")
	}
	link := fmt.Sprintf("%s/objects/%s/archive?token=%s", s.downloadBase, url.PathEscape(objectID), url.QueryEscape(token))
	return &dto.DownloadURL{URL: link, ExpiresAt: expiresAt.Unix()}, nil
}

// OpenArchive streams the archive granted by token. Callers close the reader.
func (s *ObjectService) OpenArchive(ctx context.Context, objectID, token string) (io.ReadCloser, error) {
	granted, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	if granted != objectID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is for another object")
	}

	rc, err := s.files.FetchObject(ctx, objectID)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive not found")
		}
		s.metrics.RecordStorageFailure("fetch")
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return rc, nil
}

// Thumbnails proxies a thumbnail bundle request to the file tier.
func (s *ObjectService) Thumbnails(ctx context.Context, req dto.ThumbnailsRequest) (io.ReadCloser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid thumbnail request")
	}
	for _, objectID := range req.IDs {
		if !id.Valid(objectID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid object id "+objectID)
		}
	}
	rc, err := s.files.Thumbnails(ctx, req.IDs)
	if err != nil {
		s.metrics.RecordStorageFailure("thumbnails")
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return rc, nil
}
