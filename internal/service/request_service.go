package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/export"
	"github.com/shaderhub/shaderhub-api/pkg/id"
)

const (
	msgRequestPending   = "Request already pending."
	msgRequestDenied    = "Request already denied."
	msgRequestSubmitted = "Request submitted."
	msgVisibilitySet    = "Visibility updated."
)

type requestStore interface {
	FindLatest(ctx context.Context, userID, objectID string) (*models.Request, error)
	Create(ctx context.Context, req *models.Request) error
	ListPending(ctx context.Context) ([]dto.PendingRequest, error)
	SetStatus(ctx context.Context, id string, status models.RequestStatus) (bool, error)
}

type visibilityStore interface {
	FindByID(ctx context.Context, id string) (*models.Object, error)
	SetVisibility(ctx context.Context, id, userID string, visibility models.Visibility) error
}

// RequestConfig carries moderation switches.
type RequestConfig struct {
	// PrivateSetsPublic keeps the historical behaviour of a "private" request
	// publishing the object.
	PrivateSetsPublic bool
}

// RequestService runs the visibility moderation workflow.
type RequestService struct {
	requests  requestStore
	objects   visibilityStore
	feed      feedInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RequestConfig
	now       func() time.Time
}

// NewRequestService constructs a RequestService.
func NewRequestService(requests requestStore, objects visibilityStore, feed feedInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RequestConfig) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:  requests,
		objects:   objects,
		feed:      feed,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// RequestVisibility changes or requests a change of visibility for an object owned
// by userID.
func (s *RequestService) RequestVisibility(ctx context.Context, userID, objectID string, req dto.VisibilityRequest) (*dto.VisibilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visibility request")
	}
	if !id.Valid(objectID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "object not found")
	}

	object, err := s.objects.FindByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "object not found")
		}
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	if object.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can change visibility")
	}

	if req.Visibility == models.VisibilityPrivate {
		target := models.VisibilityPrivate
		if s.config.PrivateSetsPublic {
			target = models.VisibilityPublic
		}
		if err := s.setVisibility(ctx, objectID, userID, target); err != nil {
			return nil, err
		}
		return &dto.VisibilityResult{Result: dto.ResultSuccess, Message: msgVisibilitySet}, nil
	}

	latest, err := s.requests.FindLatest(ctx, userID, objectID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	if latest == nil {
		return s.submit(ctx, userID, objectID)
	}

	switch latest.Status {
	case models.RequestStatusPending:
		return &dto.VisibilityResult{Result: dto.ResultFail, Message: msgRequestPending}, nil
	case models.RequestStatusRejected:
		return &dto.VisibilityResult{Result: dto.ResultFail, Message: msgRequestDenied}, nil
	default:
		if err := s.setVisibility(ctx, objectID, userID, models.VisibilityPublic); err != nil {
			return nil, err
		}
		return &dto.VisibilityResult{Result: dto.ResultSuccess, Message: msgVisibilitySet}, nil
	}
}

func (s *RequestService) submit(ctx context.Context, userID, objectID string) (*dto.VisibilityResult, error) {
	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	req := &models.Request{
		ID:        requestID.String(),
		UserID:    userID,
		ObjectID:  objectID,
		Status:    models.RequestStatusPending,
		CreatedAt: s.now().Unix(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	s.logger.Info("visibility request submitted", zap.String("request_id", req.ID), zap.String("object_id", objectID))
	return &dto.VisibilityResult{Result: dto.ResultSuccess, Message: msgRequestSubmitted}, nil
}

func (s *RequestService) setVisibility(ctx context.Context, objectID, userID string, visibility models.Visibility) error {
	if err := s.objects.SetVisibility(ctx, objectID, userID, visibility); err != nil {
		return appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	s.feed.InvalidateFeed(ctx)
	return nil
}

// Pending lists every pending request for moderators.
func (s *RequestService) Pending(ctx context.Context) ([]dto.PendingRequest, error) {
	items, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Failed(err, "Fetch could not be performed.")
	}
	return items, nil
}

// SetStatus resolves a pending request. Accepting it publishes the object atomically;
// a request that is already accepted or rejected is left as is.
func (s *RequestService) SetStatus(ctx context.Context, requestID string, req dto.SetStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	found, err := s.requests.SetStatus(ctx, requestID, req.Status)
	if errors.Is(err, repository.ErrRequestResolved) {
		return appErrors.Clone(appErrors.ErrConflict, "request already resolved")
	}
	if err != nil {
		return appErrors.Failed(err, "Mutation couldn't be performed.")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	if req.Status == models.RequestStatusAccepted {
		s.feed.InvalidateFeed(ctx)
	}
	s.metrics.RecordModeration(string(req.Status))
	s.logger.Info("visibility request resolved", zap.String("request_id", requestID), zap.String("status", string(req.Status)))
	return nil
}

// Export renders the pending requests as a CSV or PDF document.
func (s *RequestService) Export(ctx context.Context, rawFormat string) ([]byte, export.Format, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	items, err := s.Pending(ctx)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Title:   "Pending visibility requests",
		Headers: []string{"request_id", "object_id", "object_name", "user_id", "username", "requested_at"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, map[string]string{
			"request_id":   item.ID,
			"object_id":    item.ObjectID,
			"object_name":  item.ObjectName,
			"user_id":      item.UserID,
			"username":     item.Username,
			"requested_at": time.Unix(item.CreatedAt, 0).UTC().Format(time.RFC3339),
		})
	}

	body, err := export.Render(format, data)
	if err != nil {
		return nil, "", appErrors.Failed(err, "failed to render export")
	}
	return body, format, nil
}

// ExportFilename names an export document.
func ExportFilename(format export.Format, at time.Time) string {
	return fmt.Sprintf("pending-requests-%s.%s", at.UTC().Format("20060102-150405"), strings.ToLower(string(format)))
}
