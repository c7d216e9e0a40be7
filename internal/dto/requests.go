package dto

import "github.com/shaderhub/shaderhub-api/internal/models"

// PendingRequest is a moderation request joined with its user and object.
type PendingRequest struct {
	ID         string               `db:"id" json:"id"`
	UserID     string               `db:"user_id" json:"userId"`
	Username   string               `db:"username" json:"username"`
	ObjectID   string               `db:"object_id" json:"objectId"`
	ObjectName string               `db:"object_name" json:"objectName"`
	Status     models.RequestStatus `db:"status" json:"status"`
	CreatedAt  int64                `db:"created_at" json:"createdAt"`
}

// SetStatusRequest resolves a moderation request.
type SetStatusRequest struct {
	Status models.RequestStatus `json:"status" validate:"required,oneof=accepted rejected"`
}
