package service

import (
	"context"
	"log/slog"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/repository"
)

// NotificationService implements a user's view of their inbox. Delivery is
// handled elsewhere; this service only reads and marks.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// List returns a page of the principal's notifications, newest first, along
// with the total count.
func (s *NotificationService) List(ctx context.Context, page, perPage int) ([]domain.Notification, int, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountForUser(ctx, db, principal.ID)
	if err != nil {
		return nil, 0, err
	}

	notifications, err := s.repo.List(ctx, db, principal.ID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead marks one of the principal's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	principal, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return err
	}

	return s.repo.MarkRead(ctx, db, id, principal.ID)
}

// MarkAllRead marks all of the principal's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	principal, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	db, err := scopeDB(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.MarkAllRead(ctx, db, principal.ID); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "all notifications marked read",
		slog.String("user_id", principal.ID),
	)

	return nil
}
