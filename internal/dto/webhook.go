package dto

import "encoding/json"

// AuthEventUserCreated is the identity provider event for a new account.
const AuthEventUserCreated = "user.created"

// AuthWebhookEvent is the envelope delivered by the identity provider.
type AuthWebhookEvent struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// AuthUserData is the user payload of a user.created event.
type AuthUserData struct {
	ID       string `json:"id" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=64"`
}
