package domain

import "time"

// Refresh token revocation reasons.
const (
	RevokedReasonLogin          = "login"
	RevokedReasonLogout         = "logout"
	RevokedReasonRotation       = "rotation"
	RevokedReasonPasswordChange = "password_change"
)

// RefreshToken is the server-side record of an issued refresh token. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	TokenHash     string     `json:"-"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
