package domain

import "time"

// Friendship status constants.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
)

// Friendship links two users. Requester sends the request; Addressee accepts.
type Friendship struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requester_id"`
	AddresseeID string     `json:"addressee_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}
