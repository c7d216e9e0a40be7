package dto

// AddSearchRequest remembers a free text query.
type AddSearchRequest struct {
	Query string `json:"query" validate:"required,max=256"`
}
