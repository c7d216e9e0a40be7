package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/id"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateUsername(ctx context.Context, id, username string) (bool, error)
	Stats(ctx context.Context, id string) (*models.ProfileStats, error)
}

type pictureUploader interface {
	UploadPicture(ctx context.Context, picture filestore.Part) (string, error)
}

// ProfileService exposes public profile statistics and account changes.
type ProfileService struct {
	users      profileStore
	pictures   pictureUploader
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	maxPicture int64
}

// NewProfileService constructs a ProfileService. maxPicture bounds profile pictures
// in bytes; zero disables the check.
func NewProfileService(users profileStore, pictures pictureUploader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, maxPicture int64) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, pictures: pictures, metrics: metrics, validator: validate, logger: logger, maxPicture: maxPicture}
}

// Get returns the public statistics of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*dto.Profile, error) {
	if !id.Valid(userID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	stats, err := s.users.Stats(ctx, userID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return &dto.Profile{
		UserID:           user.ID,
		Username:         user.Username,
		ObjectsUploaded:  dto.ProfileStat{Name: "Objects uploaded", Value: stats.ObjectsUploaded},
		CollectionNumber: dto.ProfileStat{Name: "Collections", Value: stats.Collections},
		FavouriteNumber:  dto.ProfileStat{Name: "Favourites", Value: stats.Favourites},
	}, nil
}

// UpdateCredentials renames the caller.
func (s *ProfileService) UpdateCredentials(ctx context.Context, userID string, req dto.UpdateCredentialsRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid username")
	}
	found, err := s.users.UpdateUsername(ctx, userID, req.Username)
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return appErrors.Failed(err, "Failed to update credentials.")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	s.logger.Info("username updated", zap.String("user_id", userID))
	return nil
}

// UploadPicture forwards a profile picture to the file tier.
func (s *ProfileService) UploadPicture(ctx context.Context, userID string, data []byte, filename string) (*dto.PictureResult, error) {
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "picture file is required")
	}
	if s.maxPicture > 0 && int64(len(data)) > s.maxPicture {
		return nil, appErrors.Clone(appErrors.ErrValidation, "picture exceeds the maximum size")
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "picture must be an image")
	}

	pictureID, err := s.pictures.UploadPicture(ctx, filestore.Part{Name: filename, Reader: bytes.NewReader(data)})
	if err != nil {
		s.metrics.RecordStorageFailure("picture")
		return nil, appErrors.Failed(err, "Failed to update credentials.")
	}
	s.logger.Info("profile picture stored", zap.String("user_id", userID), zap.String("picture_id", pictureID))
	return &dto.PictureResult{ID: pictureID}, nil
}
