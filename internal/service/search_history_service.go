package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

type searchHistoryStore interface {
	List(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error)
	Add(ctx context.Context, entry *models.SearchHistory, keep int) error
}

// SearchHistoryService remembers the most recent queries of each user.
type SearchHistoryService struct {
	store     searchHistoryStore
	validator *validator.Validate
	size      int
	now       func() time.Time
}

// NewSearchHistoryService constructs the service keeping size entries per user.
func NewSearchHistoryService(store searchHistoryStore, validate *validator.Validate, size int) *SearchHistoryService {
	if validate == nil {
		validate = validator.New()
	}
	if size <= 0 {
		size = 10
	}
	return &SearchHistoryService{store: store, validator: validate, size: size, now: time.Now}
}

// List returns the caller's recent queries, newest first.
func (s *SearchHistoryService) List(ctx context.Context, userID string) ([]models.SearchHistory, error) {
	items, err := s.store.List(ctx, userID, s.size)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return items, nil
}

// Add records a query and drops entries beyond the configured size.
func (s *SearchHistoryService) Add(ctx context.Context, userID string, req dto.AddSearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search query")
	}
	entryID, err := uuid.NewV7()
	if err != nil {
		return appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	entry := &models.SearchHistory{ID: entryID.String(), UserID: userID, Query: req.Query, CreatedAt: s.now().Unix()}
	if err := s.store.Add(ctx, entry, s.size); err != nil {
		return appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	return nil
}
