package models

// Visibility controls whether an object or tag is listed publicly.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Object is the metadata record of an uploaded 3D asset. CreatedAt is unix seconds.
type Object struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Visibility Visibility `db:"visibility" json:"visibility"`
	UserID     string     `db:"user_id" json:"userId"`
	CreatedAt  int64      `db:"created_at" json:"createdAt"`
}
