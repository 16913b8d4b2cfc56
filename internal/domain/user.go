package domain

import "time"

// Role constants.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity resolved for a single request.
// It is rebuilt from token claims plus a fresh user lookup on every request
// and is never persisted.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
