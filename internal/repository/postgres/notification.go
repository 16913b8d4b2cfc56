package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// NotificationRepository implements repository.NotificationRepository using PostgreSQL.
type NotificationRepository struct{}

// NewNotificationRepository creates a new PostgreSQL-backed notification repository.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

// Insert delivers a notification to a user's inbox.
func (r *NotificationRepository) Insert(ctx context.Context, db database.DBTX, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := db.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.Body, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// List returns a page of the user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, db database.DBTX, userID string, limit, offset int) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, kind, body, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}

	return notifications, nil
}

// CountForUser returns how many notifications the user has.
func (r *NotificationRepository) CountForUser(ctx context.Context, db database.DBTX, userID string) (int, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, db database.DBTX, id, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL`

	ct, err := db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("notification", id)
	}

	return nil
}

// MarkAllRead marks all of the user's unread notifications as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, db database.DBTX, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL`

	if _, err := db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	return nil
}

// DeleteRead removes read notifications older than the given time.
func (r *NotificationRepository) DeleteRead(ctx context.Context, db database.DBTX, before time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE read_at IS NOT NULL AND created_at < $1`

	ct, err := db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}

	return ct.RowsAffected(), nil
}
