package models

// TagKind separates user labels from the reserved bookkeeping tags.
type TagKind string

const (
	TagKindCustom    TagKind = "custom"
	TagKindFavourite TagKind = "favourite"
	TagKindUploaded  TagKind = "uploaded"
)

// Tag labels objects and backs personal collections.
type Tag struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Colour     *string    `db:"colour" json:"colour"`
	Visibility Visibility `db:"visibility" json:"visibility"`
	UserID     *string    `db:"user_id" json:"userId"`
	Kind       TagKind    `db:"kind" json:"kind"`
}

// AttributeType is a named metadata key offered for some tags.
type AttributeType struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// AttributeValue is a value of an attribute type attached to an object.
type AttributeValue struct {
	ID              string `db:"id" json:"id"`
	Value           string `db:"value" json:"value"`
	AttributeTypeID string `db:"attribute_type_id" json:"attributeTypeId"`
}

// Collection records that a user filed an object under a tag.
type Collection struct {
	ObjectID string `db:"object_id" json:"objectId"`
	TagID    string `db:"tag_id" json:"tagId"`
	UserID   string `db:"user_id" json:"userId"`
}
