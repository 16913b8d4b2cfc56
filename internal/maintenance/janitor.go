// Package maintenance runs the periodic cleanup jobs: expired refresh tokens,
// old security events, and read notifications. Each sweep is one enumerated
// system operation in its own short transaction.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkwellhq/inkwell/internal/repository"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
)

// Retention periods for swept data.
const (
	securityEventRetention    = 90 * 24 * time.Hour
	readNotificationRetention = 30 * 24 * time.Hour
)

// Janitor periodically deletes data that has aged out.
type Janitor struct {
	runner           *rls.SystemRunner
	tokenRepo        repository.RefreshTokenRepository
	eventRepo        repository.SecurityEventRepository
	notificationRepo repository.NotificationRepository
	interval         time.Duration
	logger           *slog.Logger
}

// NewJanitor creates a janitor that sweeps at the given interval.
func NewJanitor(
	runner *rls.SystemRunner,
	tokenRepo repository.RefreshTokenRepository,
	eventRepo repository.SecurityEventRepository,
	notificationRepo repository.NotificationRepository,
	interval time.Duration,
	logger *slog.Logger,
) *Janitor {
	return &Janitor{
		runner:           runner,
		tokenRepo:        tokenRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		interval:         interval,
		logger:           logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info("maintenance janitor started",
		slog.Duration("interval", j.interval),
	)

	j.Sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("maintenance janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs all cleanup jobs once. Each job runs in its own transaction;
// one failing does not stop the others.
func (j *Janitor) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	j.sweep(ctx, rls.OpPurgeExpiredTokens, func(ctx context.Context, db database.DBTX) (int64, error) {
		return j.tokenRepo.DeleteExpired(ctx, db, now)
	})
	j.sweep(ctx, rls.OpTrimSecurityEvents, func(ctx context.Context, db database.DBTX) (int64, error) {
		return j.eventRepo.DeleteOlderThan(ctx, db, now.Add(-securityEventRetention))
	})
	j.sweep(ctx, rls.OpTrimReadNotifications, func(ctx context.Context, db database.DBTX) (int64, error) {
		return j.notificationRepo.DeleteRead(ctx, db, now.Add(-readNotificationRetention))
	})
}

func (j *Janitor) sweep(ctx context.Context, op rls.SystemOp, fn func(ctx context.Context, db database.DBTX) (int64, error)) {
	var removed int64
	err := j.runner.Run(ctx, op, func(ctx context.Context, db database.DBTX) error {
		var err error
		removed, err = fn(ctx, db)
		return err
	})
	if err != nil {
		j.logger.ErrorContext(ctx, "maintenance sweep failed",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		return
	}

	if removed > 0 {
		j.logger.InfoContext(ctx, "maintenance sweep completed",
			slog.String("operation", string(op)),
			slog.Int64("rows_removed", removed),
		)
	}
}
