package rls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkwellhq/inkwell/pkg/database"
)

// SystemOp names a system-privilege operation. Only the enumerated values
// below may run without a bound principal; anything else is rejected before
// a transaction is opened.
type SystemOp string

const (
	OpDeliverNotification   SystemOp = "deliver_notification"
	OpRecordSecurityEvent   SystemOp = "record_security_event"
	OpPurgeExpiredTokens    SystemOp = "purge_expired_tokens"
	OpTrimSecurityEvents    SystemOp = "trim_security_events"
	OpTrimReadNotifications SystemOp = "trim_read_notifications"
)

// ErrUnknownSystemOp rejects an operation outside the allow-list.
var ErrUnknownSystemOp = errors.New("operation not on the system allow-list")

var allowedSystemOps = map[SystemOp]struct{}{
	OpDeliverNotification:   {},
	OpRecordSecurityEvent:   {},
	OpPurgeExpiredTokens:    {},
	OpTrimSecurityEvents:    {},
	OpTrimReadNotifications: {},
}

// SystemRunner executes narrow, enumerated operations in short transactions
// on the shared pool, outside any request's row-scoped transaction. The
// shared pool connects as the schema owner, so row security policies do not
// apply; the allow-list is what keeps this path narrow.
type SystemRunner struct {
	pool   TxBeginner
	logger *slog.Logger
}

// NewSystemRunner creates a SystemRunner over the shared pool.
func NewSystemRunner(pool TxBeginner, logger *slog.Logger) *SystemRunner {
	return &SystemRunner{pool: pool, logger: logger}
}

// Run opens its own transaction, calls fn, and commits if fn succeeds. Any
// error from fn or the commit rolls the transaction back. The transaction
// never outlives this call.
func (r *SystemRunner) Run(ctx context.Context, op SystemOp, fn func(ctx context.Context, db database.DBTX) error) error {
	if _, ok := allowedSystemOps[op]; !ok {
		r.logger.Error("system operation rejected", slog.String("operation", string(op)))
		systemOpsTotal.WithLabelValues(string(op), "rejected").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownSystemOp, op)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		systemOpsTotal.WithLabelValues(string(op), "error").Inc()
		return fmt.Errorf("begin system tx: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.Error("rollback system tx",
				slog.String("operation", string(op)),
				slog.String("error", rbErr.Error()),
			)
		}
		systemOpsTotal.WithLabelValues(string(op), "error").Inc()
		return fmt.Errorf("system op %s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		// A failed COMMIT leaves the transaction aborted server-side; the
		// explicit rollback is best-effort cleanup on the client side.
		_ = tx.Rollback(context.WithoutCancel(ctx))
		systemOpsTotal.WithLabelValues(string(op), "error").Inc()
		return fmt.Errorf("commit system tx %s: %w", op, err)
	}

	systemOpsTotal.WithLabelValues(string(op), "ok").Inc()
	return nil
}
