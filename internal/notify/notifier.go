// Package notify delivers notifications across ownership boundaries. A
// sender's row-scoped transaction cannot insert into another user's inbox,
// so delivery runs on the system transaction path.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/repository"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
)

// Notifier delivers notifications to user inboxes.
type Notifier interface {
	// Deliver inserts a notification for the given user. Failures are
	// logged and swallowed: a missed notification never fails the action
	// that produced it.
	Deliver(ctx context.Context, userID, kind, body string)
}

// SystemNotifier implements Notifier on top of the system transaction runner.
type SystemNotifier struct {
	runner *rls.SystemRunner
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// NewSystemNotifier creates a Notifier that writes through the system runner.
func NewSystemNotifier(runner *rls.SystemRunner, repo repository.NotificationRepository, logger *slog.Logger) *SystemNotifier {
	return &SystemNotifier{runner: runner, repo: repo, logger: logger}
}

// Deliver inserts a notification into the recipient's inbox.
func (n *SystemNotifier) Deliver(ctx context.Context, userID, kind, body string) {
	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	// Delivery happens after the sender's transaction committed; it must not
	// be lost to a request context that is already winding down.
	ctx = context.WithoutCancel(ctx)
	err := n.runner.Run(ctx, rls.OpDeliverNotification, func(ctx context.Context, db database.DBTX) error {
		return n.repo.Insert(ctx, db, notification)
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "deliver notification",
			slog.String("user_id", userID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
