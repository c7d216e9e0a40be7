package dto

// ProfileStat is a labelled counter.
type ProfileStat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Profile is the public statistics view of a user.
type Profile struct {
	UserID           string      `json:"userId"`
	Username         string      `json:"username"`
	ObjectsUploaded  ProfileStat `json:"objectsUploaded"`
	CollectionNumber ProfileStat `json:"collectionNumber"`
	FavouriteNumber  ProfileStat `json:"favouriteNumber"`
}

// UpdateCredentialsRequest changes the caller's username.
type UpdateCredentialsRequest struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
}
