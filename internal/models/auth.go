package models

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the role allowed to moderate visibility requests.
const RoleAdmin = "admin"

// SessionClaims is the payload of a session token issued by the identity provider.
type SessionClaims struct {
	UserID   string   `json:"id"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the session carries role.
func (c *SessionClaims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
