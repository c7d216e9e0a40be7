package dto

import "github.com/shaderhub/shaderhub-api/internal/models"

// LibraryRow is one collection membership joined with its tag and object.
type LibraryRow struct {
	TagID      string `db:"tag_id"`
	TagName    string `db:"tag_name"`
	ObjectID   string `db:"object_id"`
	ObjectName string `db:"object_name"`
	UploaderID string `db:"uploader_id"`
}

// LibraryObject is an object inside a library group.
type LibraryObject struct {
	ObjectID   string `json:"objectId"`
	ObjectName string `json:"objectName"`
	UploaderID string `json:"uploaderId"`
}

// LibraryGroup collects the objects filed under one tag.
type LibraryGroup struct {
	TagName string          `json:"tagName"`
	Objects []LibraryObject `json:"objects"`
}

// UserCollection is a tag the caller can file an object under.
type UserCollection struct {
	ID           string            `db:"id" json:"id"`
	Name         string            `db:"name" json:"name"`
	Colour       *string           `db:"colour" json:"colour"`
	Visibility   models.Visibility `db:"visibility" json:"visibility"`
	InCollection bool              `db:"in_collection" json:"inCollection"`
}

// CollectionDiff lists only the tags whose membership changed.
type CollectionDiff struct {
	Diff map[string]bool `json:"diff" validate:"required,min=1,dive,keys,required,max=64,endkeys"`
}

// CreateCollectionRequest creates or reuses a tag and files the object under it.
type CreateCollectionRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	Colour string `json:"colour" validate:"required,max=32"`
}

// FavouriteState reports whether the caller favourited an object.
type FavouriteState struct {
	Favourite bool `json:"favourite"`
}
