package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

const (
	initialFeedLimit   = 20
	queryFailedMessage = "Query failed."
)

type feedStore interface {
	ListFeed(ctx context.Context, params repository.FeedParams) ([]dto.FeedItem, error)
	ListInitial(ctx context.Context, limit int) ([]dto.FeedItem, error)
}

type feedCache interface {
	Load(ctx context.Context, key string, dest interface{}) bool
	Store(ctx context.Context, key string, page interface{})
	Purge(ctx context.Context) error
}

// feedInvalidator is implemented by FeedService for services that change what the
// public feed shows.
type feedInvalidator interface {
	InvalidateFeed(ctx context.Context)
}

// FeedConfig tunes paging of the feed.
type FeedConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// FeedService pages through public objects newest first.
type FeedService struct {
	repo      feedStore
	cache     feedCache
	validator *validator.Validate
	logger    *zap.Logger
	config    FeedConfig
}

// NewFeedService constructs a FeedService. cache may be nil.
func NewFeedService(repo feedStore, cache feedCache, validate *validator.Validate, logger *zap.Logger, cfg FeedConfig) *FeedService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > 100 {
		cfg.MaxLimit = 100
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = 20
	}
	return &FeedService{repo: repo, cache: cache, validator: validate, logger: logger, config: cfg}
}

// GetInfinite returns one page of the public feed. The boolean reports whether the
// page was served from cache.
func (s *FeedService) GetInfinite(ctx context.Context, q dto.FeedQuery) (*dto.FeedPage, bool, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feed query")
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("limit must be between 1 and %d", s.config.MaxLimit))
	}
	cursor, err := models.ParseCursor(q.Cursor)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cursor")
	}
	backward := q.Direction == dto.DirectionBackward
	terms := strings.Fields(q.Query)

	cacheKey := ""
	if len(terms) == 0 && s.cache != nil {
		cacheKey = pageKey(directionOf(backward), limit, q.Cursor)
		var cached dto.FeedPage
		if s.cache.Load(ctx, cacheKey, &cached) {
			return &cached, true, nil
		}
	}

	rows, err := s.repo.ListFeed(ctx, repository.FeedParams{
		Limit:    limit + 1,
		Cursor:   cursor,
		Backward: backward,
		Terms:    terms,
	})
	if err != nil {
		return nil, false, appErrors.Failed(err, queryFailedMessage)
	}

	page := buildFeedPage(rows, limit, backward, cursor != nil)
	if cacheKey != "" {
		s.cache.Store(ctx, cacheKey, page)
	}
	return page, false, nil
}

// buildFeedPage trims the look-ahead row, restores newest-first order and derives
// the cursors on both ends.
func buildFeedPage(rows []dto.FeedItem, limit int, backward, fromCursor bool) *dto.FeedPage {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if backward {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	page := &dto.FeedPage{Items: rows}
	if page.Items == nil {
		page.Items = []dto.FeedItem{}
	}
	if len(rows) == 0 {
		return page
	}

	if hasMore || backward {
		page.NextCursor = cursorOf(rows[len(rows)-1])
	}
	if (backward && hasMore) || (!backward && fromCursor) {
		page.PrevCursor = cursorOf(rows[0])
	}
	return page
}

func cursorOf(item dto.FeedItem) *string {
	token := models.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}.Encode()
	return &token
}

func directionOf(backward bool) string {
	if backward {
		return dto.DirectionBackward
	}
	return dto.DirectionForward
}

// Initial returns the newest public objects for the landing page.
func (s *FeedService) Initial(ctx context.Context) ([]dto.FeedItem, bool, error) {
	if s.cache != nil {
		var cached []dto.FeedItem
		if s.cache.Load(ctx, feedInitialKey, &cached) {
			return cached, true, nil
		}
	}

	items, err := s.repo.ListInitial(ctx, initialFeedLimit)
	if err != nil {
		return nil, false, appErrors.Failed(err, queryFailedMessage)
	}
	if items == nil {
		items = []dto.FeedItem{}
	}
	if s.cache != nil {
		s.cache.Store(ctx, feedInitialKey, items)
	}
	return items, false, nil
}

// InvalidateFeed drops every cached feed page. Failures are logged only.
func (s *FeedService) InvalidateFeed(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx); err != nil {
		s.logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}
