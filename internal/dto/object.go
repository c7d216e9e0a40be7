package dto

import "github.com/shaderhub/shaderhub-api/internal/models"

// TagSummary is a tag attached to an object.
type TagSummary struct {
	ID     string         `db:"id" json:"id"`
	Name   string         `db:"name" json:"name"`
	Colour *string        `db:"colour" json:"colour"`
	Kind   models.TagKind `db:"kind" json:"kind"`
}

// AttributeSummary is an attribute value attached to an object.
type AttributeSummary struct {
	TypeID   string `db:"type_id" json:"typeId"`
	TypeName string `db:"type_name" json:"typeName"`
	Value    string `db:"value" json:"value"`
}

// ObjectDetail is the full view of one object for the caller.
type ObjectDetail struct {
	models.Object
	Username   string             `json:"username"`
	Tags       []TagSummary       `json:"tags"`
	Attributes []AttributeSummary `json:"attributes"`
	Favourite  bool               `json:"favourite"`
}

// VisibilityRequest asks to change the visibility of an owned object.
type VisibilityRequest struct {
	Visibility models.Visibility `json:"visibility" validate:"required,oneof=public private"`
}

// Visibility request outcomes.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// VisibilityResult reports the outcome of a visibility request.
type VisibilityResult struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// DownloadURL is a short-lived link to an object archive.
type DownloadURL struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}
