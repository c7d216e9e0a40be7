package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/id"
)

type collectionStore interface {
	IsFavourite(ctx context.Context, userID, objectID string) (bool, error)
	ToggleFavourite(ctx context.Context, userID, objectID string) (bool, error)
	ApplyDiff(ctx context.Context, userID, objectID string, diff map[string]bool) error
	CreateCollection(ctx context.Context, userID, objectID, newTagID, name, colour string) (*models.Tag, error)
	ListLibrary(ctx context.Context, userID string) ([]dto.LibraryRow, error)
	ListUserCollections(ctx context.Context, userID, objectID string) ([]dto.UserCollection, error)
}

type objectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Object, error)
}

// LibraryService manages favourites and personal collections.
type LibraryService struct {
	collections collectionStore
	objects     objectFinder
	validator   *validator.Validate
	logger      *zap.Logger
	newID       func() (string, error)
}

// NewLibraryService constructs a LibraryService.
func NewLibraryService(collections collectionStore, objects objectFinder, validate *validator.Validate, logger *zap.Logger) *LibraryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryService{collections: collections, objects: objects, validator: validate, logger: logger, newID: id.New}
}

// Library groups the caller's collection rows by tag id.
func (s *LibraryService) Library(ctx context.Context, userID string) (map[string]dto.LibraryGroup, error) {
	rows, err := s.collections.ListLibrary(ctx, userID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return groupLibrary(rows), nil
}

func groupLibrary(rows []dto.LibraryRow) map[string]dto.LibraryGroup {
	groups := make(map[string]dto.LibraryGroup)
	for _, row := range rows {
		group, ok := groups[row.TagID]
		if !ok {
			group = dto.LibraryGroup{TagName: row.TagName, Objects: []dto.LibraryObject{}}
		}
		group.Objects = append(group.Objects, dto.LibraryObject{
			ObjectID:   row.ObjectID,
			ObjectName: row.ObjectName,
			UploaderID: row.UploaderID,
		})
		groups[row.TagID] = group
	}
	return groups
}

// Favourite reports whether the caller favourited an object.
func (s *LibraryService) Favourite(ctx context.Context, userID, objectID string) (*dto.FavouriteState, error) {
	if err := s.ensureVisible(ctx, userID, objectID); err != nil {
		return nil, err
	}
	favourite, err := s.collections.IsFavourite(ctx, userID, objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return &dto.FavouriteState{Favourite: favourite}, nil
}

// ToggleFavourite flips the favourite state and returns the new one.
func (s *LibraryService) ToggleFavourite(ctx context.Context, userID, objectID string) (*dto.FavouriteState, error) {
	if err := s.ensureVisible(ctx, userID, objectID); err != nil {
		return nil, err
	}
	favourite, err := s.collections.ToggleFavourite(ctx, userID, objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	return &dto.FavouriteState{Favourite: favourite}, nil
}

// UserCollections lists the tags usable by the caller with membership flags.
func (s *LibraryService) UserCollections(ctx context.Context, userID, objectID string) ([]dto.UserCollection, error) {
	if err := s.ensureVisible(ctx, userID, objectID); err != nil {
		return nil, err
	}
	items, err := s.collections.ListUserCollections(ctx, userID, objectID)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return items, nil
}

// AddToCollection applies a membership diff for one object.
func (s *LibraryService) AddToCollection(ctx context.Context, userID, objectID string, req dto.CollectionDiff) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection diff")
	}
	for tagID := range req.Diff {
		if !id.Valid(tagID) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid tag id "+tagID)
		}
	}
	if err := s.ensureVisible(ctx, userID, objectID); err != nil {
		return err
	}
	if err := s.collections.ApplyDiff(ctx, userID, objectID, req.Diff); err != nil {
		if errors.Is(err, repository.ErrTagUnusable) {
			return appErrors.Clone(appErrors.ErrForbidden, "collection tag is not available")
		}
		return appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	return nil
}

// CreateCollection files an object under a named tag, creating the tag when needed.
func (s *LibraryService) CreateCollection(ctx context.Context, userID, objectID string, req dto.CreateCollectionRequest) (*models.Tag, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection")
	}
	if err := s.ensureVisible(ctx, userID, objectID); err != nil {
		return nil, err
	}
	tagID, err := s.newID()
	if err != nil {
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}

	tag, err := s.collections.CreateCollection(ctx, userID, objectID, tagID, req.Name, req.Colour)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTagTaken):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a tag with this name already exists")
		case appErrors.IsUniqueViolation(err):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "tag name or colour already in use")
		default:
			return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
		}
	}
	s.logger.Info("collection updated", zap.String("tag_id", tag.ID), zap.String("object_id", objectID))
	return tag, nil
}

func (s *LibraryService) ensureVisible(ctx context.Context, userID, objectID string) error {
	if !id.Valid(objectID) {
		return appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}
	object, err := s.objects.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "object not found")
		}
		return appErrors.Failed(err, "Fetch could not be performed.")
	}
	if object.Visibility != models.VisibilityPublic && object.UserID != userID {
		return appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}
	return nil
}
