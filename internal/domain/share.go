package domain

import "time"

// Share permission constants.
const (
	SharePermissionRead  = "read"
	SharePermissionWrite = "write"
)

// NoteShare grants a recipient access to a note under a permission level.
type NoteShare struct {
	ID          string     `json:"id"`
	NoteID      string     `json:"note_id"`
	OwnerID     string     `json:"owner_id"`
	RecipientID string     `json:"recipient_id"`
	Permission  string     `json:"permission"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// ValidSharePermission reports whether p is a recognized permission level.
func ValidSharePermission(p string) bool {
	return p == SharePermissionRead || p == SharePermissionWrite
}
