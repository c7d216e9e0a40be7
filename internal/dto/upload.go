package dto

import "github.com/shaderhub/shaderhub-api/internal/models"

// CatalogRow is one tag joined with an optional attribute type.
type CatalogRow struct {
	models.Tag
	AttributeID   *string `db:"attribute_id"`
	AttributeName *string `db:"attribute_name"`
}

// CatalogEntry is a tag with the attribute types offered for it at upload time.
type CatalogEntry struct {
	Tag        models.Tag             `json:"tag"`
	Attributes []models.AttributeType `json:"attributes"`
}

// UploadMetadata describes an uploaded object. Metadata maps tag id to attribute
// type id to value.
type UploadMetadata struct {
	Name     string                       `json:"name" validate:"required,max=128"`
	Metadata map[string]map[string]string `json:"metadata" validate:"dive,keys,required,max=64,endkeys"`
}

// UploadResult identifies the stored object.
type UploadResult struct {
	ObjectID string `json:"objectId"`
}

// PictureResult identifies a stored profile picture.
type PictureResult struct {
	ID string `json:"id"`
}
