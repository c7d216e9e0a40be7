package dto

// Feed directions.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
)

// FeedQuery holds the query string of the public feed.
type FeedQuery struct {
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Cursor    string `form:"cursor"`
	Direction string `form:"direction" validate:"omitempty,oneof=forward backward"`
	Query     string `form:"query" validate:"max=256"`
}

// FeedItem is one public object in a feed page.
type FeedItem struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	UserID    string `db:"user_id" json:"userId"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// FeedPage is a page of the feed, newest first.
type FeedPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor *string    `json:"nextCursor"`
	PrevCursor *string    `json:"prevCursor"`
}

// ThumbnailsRequest lists the object ids whose thumbnails should be bundled.
type ThumbnailsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required,max=64"`
}
