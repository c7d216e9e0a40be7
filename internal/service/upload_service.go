package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/id"
	"github.com/shaderhub/shaderhub-api/pkg/modelzip"
)

const uploadFailedMessage = "Mutation couldn't be performed."

type catalogStore interface {
	ListCatalog(ctx context.Context, userID string) ([]dto.CatalogRow, error)
}

type objectWriter interface {
	CreateWithMetadata(ctx context.Context, in repository.NewObject) error
	Delete(ctx context.Context, id string) error
}

type objectUploader interface {
	UploadObject(ctx context.Context, objectID string, archive filestore.Part, thumbnail *filestore.Part) error
}

// UploadConfig bounds upload sizes.
type UploadConfig struct {
	MaxArchiveBytes   int64
	MaxThumbnailBytes int64
}

// UploadInput is a parsed upload form.
type UploadInput struct {
	Metadata      dto.UploadMetadata
	Archive       []byte
	ArchiveName   string
	Thumbnail     []byte
	ThumbnailName string
}

// UploadService stores new objects: metadata first, then blobs on the file tier.
type UploadService struct {
	catalog   catalogStore
	objects   objectWriter
	files     objectUploader
	queue     jobEnqueuer
	feed      feedInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    UploadConfig
	now       func() time.Time
	newID     func() (string, error)
}

// UploadServiceDeps groups the collaborators of UploadService.
type UploadServiceDeps struct {
	Catalog   catalogStore
	Objects   objectWriter
	Files     objectUploader
	Queue     jobEnqueuer
	Feed      feedInvalidator
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    UploadConfig
}

// NewUploadService constructs an UploadService.
func NewUploadService(deps UploadServiceDeps) *UploadService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &UploadService{
		catalog:   deps.Catalog,
		objects:   deps.Objects,
		files:     deps.Files,
		queue:     deps.Queue,
		feed:      deps.Feed,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		config:    deps.Config,
		now:       time.Now,
		newID:     id.New,
	}
}

// Catalog lists the tags visible to userID with the attribute types offered for each.
func (s *UploadService) Catalog(ctx context.Context, userID string) ([]dto.CatalogEntry, error) {
	rows, err := s.catalog.ListCatalog(ctx, userID)
	if err != nil {
		return nil, appErrors.Failed(err, "Query failed.")
	}
	return groupCatalog(rows), nil
}

func groupCatalog(rows []dto.CatalogRow) []dto.CatalogEntry {
	entries := make([]dto.CatalogEntry, 0)
	index := make(map[string]int)
	for _, row := range rows {
		pos, ok := index[row.ID]
		if !ok {
			pos = len(entries)
			index[row.ID] = pos
			entries = append(entries, dto.CatalogEntry{Tag: row.Tag, Attributes: []models.AttributeType{}})
		}
		if row.AttributeID != nil && row.AttributeName != nil {
			entries[pos].Attributes = append(entries[pos].Attributes, models.AttributeType{ID: *row.AttributeID, Name: *row.AttributeName})
		}
	}
	return entries
}

// Upload validates and stores a new private object owned by userID.
func (s *UploadService) Upload(ctx context.Context, userID string, in UploadInput) (*dto.UploadResult, error) {
	if err := s.validateFiles(in); err != nil {
		s.metrics.RecordUpload(UploadResultRejected)
		return nil, err
	}
	if err := s.validator.Struct(in.Metadata); err != nil {
		s.metrics.RecordUpload(UploadResultRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload metadata")
	}

	rows, err := s.catalog.ListCatalog(ctx, userID)
	if err != nil {
		return nil, appErrors.Failed(err, uploadFailedMessage)
	}
	tagIDs, attributes, err := s.resolveMetadata(in.Metadata.Metadata, groupCatalog(rows))
	if err != nil {
		s.metrics.RecordUpload(UploadResultRejected)
		return nil, err
	}

	objectID, err := s.newID()
	if err != nil {
		return nil, appErrors.Failed(err, uploadFailedMessage)
	}
	object := models.Object{
		ID:         objectID,
		Name:       strings.TrimSpace(in.Metadata.Name),
		Visibility: models.VisibilityPrivate,
		UserID:     userID,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.objects.CreateWithMetadata(ctx, repository.NewObject{Object: object, TagIDs: tagIDs, Attributes: attributes}); err != nil {
		return nil, appErrors.Failed(err, uploadFailedMessage)
	}

	var thumbnail *filestore.Part
	if len(in.Thumbnail) > 0 {
		thumbnail = &filestore.Part{Name: in.ThumbnailName, Reader: bytes.NewReader(in.Thumbnail)}
	}
	archive := filestore.Part{Name: in.ArchiveName, Reader: bytes.NewReader(in.Archive)}
	if err := s.files.UploadObject(ctx, objectID, archive, thumbnail); err != nil {
		s.metrics.RecordStorageFailure("upload")
		s.compensate(ctx, objectID, err)
		return nil, appErrors.Failed(err, uploadFailedMessage)
	}

	s.feed.InvalidateFeed(ctx)
	s.metrics.RecordUpload(UploadResultStored)
	s.logger.Info("object uploaded", zap.String("object_id", objectID), zap.String("user_id", userID), zap.Int("tags", len(tagIDs)))
	return &dto.UploadResult{ObjectID: objectID}, nil
}

// compensate removes the metadata of an upload whose blobs never reached the file
// tier. A failed removal is handed to the job queue.
func (s *UploadService) compensate(ctx context.Context, objectID string, cause error) {
	s.metrics.RecordUpload(UploadResultCompensated)
	s.logger.Warn("forwarding upload failed, compensating", zap.String("object_id", objectID), zap.Error(cause))

	err := s.objects.Delete(context.WithoutCancel(ctx), objectID)
	if err == nil {
		return
	}
	s.logger.Warn("compensation failed, scheduling retry", zap.String("object_id", objectID), zap.Error(err))
	if err := s.queue.Enqueue(newJob(JobCompensateUpload, objectID)); err != nil {
		s.logger.Error("failed to enqueue upload compensation", zap.String("object_id", objectID), zap.Error(err))
	}
}

func (s *UploadService) validateFiles(in UploadInput) error {
	if len(in.Archive) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "archive file is required")
	}
	if s.config.MaxArchiveBytes > 0 && int64(len(in.Archive)) > s.config.MaxArchiveBytes {
		return appErrors.Clone(appErrors.ErrValidation, "archive exceeds the maximum size")
	}
	if !isZip(in.Archive) {
		return appErrors.Clone(appErrors.ErrValidation, "archive must be a zip file")
	}
	bundle, err := modelzip.Unpack(in.Archive)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "archive could not be read")
	}
	if bundle == nil {
		return appErrors.Clone(appErrors.ErrValidation, "archive contains no previewable model")
	}

	if len(in.Thumbnail) > 0 {
		if s.config.MaxThumbnailBytes > 0 && int64(len(in.Thumbnail)) > s.config.MaxThumbnailBytes {
			return appErrors.Clone(appErrors.ErrValidation, "thumbnail exceeds the maximum size")
		}
		if !strings.HasPrefix(mimetype.Detect(in.Thumbnail).String(), "image/") {
			return appErrors.Clone(appErrors.ErrValidation, "thumbnail must be an image")
		}
	}
	return nil
}

func isZip(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

// resolveMetadata checks every tag and attribute type against the catalog visible
// to the uploader and returns the rows to insert.
func (s *UploadService) resolveMetadata(metadata map[string]map[string]string, catalog []dto.CatalogEntry) ([]string, []models.AttributeValue, error) {
	allowed := make(map[string]map[string]bool, len(catalog))
	for _, entry := range catalog {
		attrs := make(map[string]bool, len(entry.Attributes))
		for _, attr := range entry.Attributes {
			attrs[attr.ID] = true
		}
		allowed[entry.Tag.ID] = attrs
	}

	tagIDs := make([]string, 0, len(metadata))
	for tagID := range metadata {
		tagIDs = append(tagIDs, tagID)
	}
	sort.Strings(tagIDs)

	attributes := make([]models.AttributeValue, 0)
	for _, tagID := range tagIDs {
		attrs, ok := allowed[tagID]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown tag %s", tagID))
		}
		typeIDs := make([]string, 0, len(metadata[tagID]))
		for typeID := range metadata[tagID] {
			typeIDs = append(typeIDs, typeID)
		}
		sort.Strings(typeIDs)
		for _, typeID := range typeIDs {
			if !attrs[typeID] {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attribute %s is not offered for tag %s", typeID, tagID))
			}
			value := strings.TrimSpace(metadata[tagID][typeID])
			if value == "" {
				continue
			}
			valueID, err := s.newID()
			if err != nil {
				return nil, nil, appErrors.Failed(err, uploadFailedMessage)
			}
			attributes = append(attributes, models.AttributeValue{ID: valueID, Value: value, AttributeTypeID: typeID})
		}
	}
	return tagIDs, attributes, nil
}
