package session

import "github.com/storefrontapp/authkit/authapi"

// DefaultRole is assigned when signup yields no role for the new account.
const DefaultRole = "customer"

// User is the in-memory representation of the current actor. It is owned
// exclusively by the Manager; no other component mutates it.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// userFromProfile maps a fetched profile onto a User. The role is carried
// as-is; only signup applies the default role.
func userFromProfile(p authapi.Profile) User {
	return User{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Avatar: p.Avatar,
		Role:   p.Role,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
