package models

// RequestStatus is the moderation state of a visibility request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Request asks an admin to make a private object public.
type Request struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"userId"`
	ObjectID  string        `db:"object_id" json:"objectId"`
	Status    RequestStatus `db:"status" json:"status"`
	CreatedAt int64         `db:"created_at" json:"createdAt"`
}

// SearchHistory is one remembered free text query.
type SearchHistory struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"-"`
	Query     string `db:"query" json:"query"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}
