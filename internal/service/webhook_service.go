package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
)

type userWriter interface {
	Create(ctx context.Context, user *models.User) error
}

type webhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

// WebhookService mirrors identity provider events into the users table.
type WebhookService struct {
	users     userWriter
	verifier  webhookVerifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWebhookService builds a WebhookService verifying deliveries with the svix secret.
func NewWebhookService(users userWriter, secret string, validate *validator.Validate, logger *zap.Logger) (*WebhookService, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return newWebhookService(users, wh, validate, logger), nil
}

func newWebhookService(users userWriter, verifier webhookVerifier, validate *validator.Validate, logger *zap.Logger) *WebhookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{users: users, verifier: verifier, validator: validate, logger: logger}
}

// HandleAuthEvent verifies a delivery and applies it. Unknown event types are
// acknowledged and ignored.
func (s *WebhookService) HandleAuthEvent(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.verifier.Verify(payload, headers); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid webhook signature")
	}

	var event dto.AuthWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}
	if err := s.validator.Struct(event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}

	switch event.Type {
	case dto.AuthEventUserCreated:
		return s.createUser(ctx, event.Data)
	default:
		s.logger.Debug("ignoring auth event", zap.String("type", event.Type))
		return nil
	}
}

func (s *WebhookService) createUser(ctx context.Context, raw json.RawMessage) error {
	var data dto.AuthUserData
	if err := json.Unmarshal(raw, &data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if err := s.validator.Struct(data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if err := s.users.Create(ctx, &models.User{ID: data.ID, Username: data.Username}); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return appErrors.Failed(err, "failed to create user")
	}
	s.logger.Info("user created from auth webhook", zap.String("user_id", data.ID))
	return nil
}
