package models

// User mirrors a user known to the identity provider.
type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}

// ProfileStats aggregates counters shown on a public profile.
type ProfileStats struct {
	ObjectsUploaded int `db:"objects_uploaded"`
	Collections     int `db:"collections"`
	Favourites      int `db:"favourites"`
}
