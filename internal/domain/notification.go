package domain

import "time"

// Notification kind constants.
const (
	NotificationNoteShared    = "note.shared"
	NotificationShareRevoked  = "note.share_revoked"
	NotificationFriendRequest = "friend.requested"
	NotificationFriendAccept  = "friend.accepted"
)

// Notification is a message delivered to a user's inbox. Delivery crosses
// ownership boundaries, so inserts go through the system transaction path.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      string     `json:"kind"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
