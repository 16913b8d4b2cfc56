// Package repository defines the persistence interfaces for the application.
//
// Every method takes the database handle it must run on. Request handlers
// pass the row-scoped transaction bound to their principal, system jobs pass
// the short transaction the system runner opened, and pre-authentication
// callers pass the shared pool. Binding the handle per call instead of per
// repository keeps a query from silently running outside its transaction.
package repository

import (
	"context"
	"time"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, db database.DBTX, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, db database.DBTX, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, db database.DBTX, email string) (*domain.User, error)

	// UpdatePassword replaces a user's password hash.
	UpdatePassword(ctx context.Context, db database.DBTX, id, passwordHash string) error
}

// RefreshTokenRepository defines persistence operations for refresh tokens.
// Only token hashes are stored.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, db database.DBTX, token *domain.RefreshToken) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, db database.DBTX, tokenHash string) (*domain.RefreshToken, error)

	// Revoke marks a single token as revoked with the given reason.
	Revoke(ctx context.Context, db database.DBTX, id, reason string) error

	// RevokeAllForUser revokes every active token belonging to the user.
	RevokeAllForUser(ctx context.Context, db database.DBTX, userID, reason string) error

	// DeleteExpired removes tokens that expired before the given time and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, db database.DBTX, before time.Time) (int64, error)
}

// NoteRepository defines persistence operations for notes. Row security
// decides which rows each call can see, so list queries carry no ownership
// predicate of their own.
type NoteRepository interface {
	// Create inserts a new note.
	Create(ctx context.Context, db database.DBTX, note *domain.Note) error

	// GetByID retrieves a note visible to the bound principal.
	GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Note, error)

	// List returns a page of notes visible to the bound principal, owned
	// and shared alike, most recently updated first.
	List(ctx context.Context, db database.DBTX, limit, offset int) ([]domain.Note, error)

	// Count returns how many notes are visible to the bound principal.
	Count(ctx context.Context, db database.DBTX) (int, error)

	// Update modifies a note's title, content, and encrypted flag.
	Update(ctx context.Context, db database.DBTX, note *domain.Note) error

	// Delete removes a note.
	Delete(ctx context.Context, db database.DBTX, id string) error
}

// FriendshipRepository defines persistence operations for friendships.
type FriendshipRepository interface {
	// Create inserts a new pending friendship request.
	Create(ctx context.Context, db database.DBTX, f *domain.Friendship) error

	// GetByID retrieves a friendship visible to the bound principal.
	GetByID(ctx context.Context, db database.DBTX, id string) (*domain.Friendship, error)

	// GetBetween retrieves the friendship between two users in either
	// direction, if one exists.
	GetBetween(ctx context.Context, db database.DBTX, userA, userB string) (*domain.Friendship, error)

	// Accept marks a pending request as accepted.
	Accept(ctx context.Context, db database.DBTX, id string) error

	// Delete removes a friendship or pending request.
	Delete(ctx context.Context, db database.DBTX, id string) error

	// List returns all friendships involving the bound principal.
	List(ctx context.Context, db database.DBTX) ([]domain.Friendship, error)
}

// NoteShareRepository defines persistence operations for note shares.
type NoteShareRepository interface {
	// Create inserts a new active share.
	Create(ctx context.Context, db database.DBTX, share *domain.NoteShare) error

	// GetByID retrieves a share visible to the bound principal.
	GetByID(ctx context.Context, db database.DBTX, id string) (*domain.NoteShare, error)

	// GetActive retrieves the active share of a note to a recipient.
	GetActive(ctx context.Context, db database.DBTX, noteID, recipientID string) (*domain.NoteShare, error)

	// ListForNote returns all active shares of a note.
	ListForNote(ctx context.Context, db database.DBTX, noteID string) ([]domain.NoteShare, error)

	// UpdatePermission changes the permission of an active share.
	UpdatePermission(ctx context.Context, db database.DBTX, id, permission string) error

	// Revoke marks a share as revoked.
	Revoke(ctx context.Context, db database.DBTX, id string) error
}

// NotificationRepository defines persistence operations for notifications.
// Insert and DeleteRead run on system transactions; the rest run inside the
// recipient's row-scoped transaction.
type NotificationRepository interface {
	// Insert delivers a notification to a user's inbox.
	Insert(ctx context.Context, db database.DBTX, n *domain.Notification) error

	// List returns a page of the user's notifications, newest first.
	List(ctx context.Context, db database.DBTX, userID string, limit, offset int) ([]domain.Notification, error)

	// CountForUser returns how many notifications the user has.
	CountForUser(ctx context.Context, db database.DBTX, userID string) (int, error)

	// MarkRead marks a single notification as read.
	MarkRead(ctx context.Context, db database.DBTX, id, userID string) error

	// MarkAllRead marks all of the user's unread notifications as read.
	MarkAllRead(ctx context.Context, db database.DBTX, userID string) error

	// DeleteRead removes read notifications older than the given time and
	// returns how many were removed.
	DeleteRead(ctx context.Context, db database.DBTX, before time.Time) (int64, error)
}

// SecurityEventRepository defines persistence operations for the append-only
// security audit log. Both methods run on system transactions.
type SecurityEventRepository interface {
	// Insert appends a security event.
	Insert(ctx context.Context, db database.DBTX, event *domain.SecurityEvent) error

	// DeleteOlderThan removes events older than the given time and returns
	// how many were removed.
	DeleteOlderThan(ctx context.Context, db database.DBTX, before time.Time) (int64, error)
}
