package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/pkg/database"
)

// SecurityEventRepository implements repository.SecurityEventRepository using PostgreSQL.
type SecurityEventRepository struct{}

// NewSecurityEventRepository creates a new PostgreSQL-backed security event repository.
func NewSecurityEventRepository() *SecurityEventRepository {
	return &SecurityEventRepository{}
}

// Insert appends a security event.
func (r *SecurityEventRepository) Insert(ctx context.Context, db database.DBTX, e *domain.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, event_type, severity, principal_id, source_address, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.Exec(ctx, query,
		e.ID,
		e.EventType,
		e.Severity,
		e.PrincipalID,
		e.SourceAddress,
		e.Details,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}

	return nil
}

// DeleteOlderThan removes events older than the given time.
func (r *SecurityEventRepository) DeleteOlderThan(ctx context.Context, db database.DBTX, before time.Time) (int64, error) {
	query := `DELETE FROM security_events WHERE created_at < $1`

	ct, err := db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete old security events: %w", err)
	}

	return ct.RowsAffected(), nil
}
