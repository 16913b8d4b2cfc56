// Package audit records security events. Writes go through the system
// transaction path because the events fire before authentication completes
// or on behalf of a request whose own transaction is being rolled back.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/repository"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// Recorder records security events.
type Recorder interface {
	// Record persists a security event. It never fails the caller: audit
	// problems are logged, not propagated into request handling.
	Record(ctx context.Context, event *domain.SecurityEvent)
}

// SystemRecorder implements Recorder on top of the system transaction runner.
type SystemRecorder struct {
	runner *rls.SystemRunner
	repo   repository.SecurityEventRepository
	logger *slog.Logger
}

// NewSystemRecorder creates a Recorder that writes through the system runner.
func NewSystemRecorder(runner *rls.SystemRunner, repo repository.SecurityEventRepository, l *slog.Logger) *SystemRecorder {
	return &SystemRecorder{
		runner: runner,
		repo:   repo,
		logger: logger.SecurityChannel(l),
	}
}

// Record persists the event and mirrors it to the security log channel.
func (r *SystemRecorder) Record(ctx context.Context, event *domain.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = domain.SeverityWarning
	}

	principal := ""
	if event.PrincipalID != nil {
		principal = *event.PrincipalID
	}
	r.logger.WarnContext(ctx, "security event",
		slog.String("event_type", event.EventType),
		slog.String("severity", event.Severity),
		slog.String("principal_id", principal),
		slog.String("source_address", event.SourceAddress),
		slog.String("details", event.Details),
	)

	// The write must survive request cancellation: a torn-down connection is
	// exactly the kind of request worth auditing.
	ctx = context.WithoutCancel(ctx)
	err := r.runner.Run(ctx, rls.OpRecordSecurityEvent, func(ctx context.Context, db database.DBTX) error {
		return r.repo.Insert(ctx, db, event)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "persist security event",
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
	}
}
