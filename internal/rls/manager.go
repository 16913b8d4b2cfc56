package rls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrBadPrincipalID rejects a principal id that is not a canonical UUID.
// The id is the one value interpolated into SQL text, so nothing that fails
// this check may ever reach setPrincipalSQL's output.
var ErrBadPrincipalID = errors.New("principal id is not a canonical uuid")

// TxBeginner starts transactions. *pgxpool.Pool and pgxmock both satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Manager opens row-scoped transactions on a pool dedicated to request
// traffic. Every transaction it returns has the principal bound with
// SET LOCAL before any application query runs, which is what the database's
// row security policies key on.
type Manager struct {
	pool   TxBeginner
	logger *slog.Logger
}

// NewManager creates a Manager over the row-scoped pool.
func NewManager(pool TxBeginner, logger *slog.Logger) *Manager {
	return &Manager{pool: pool, logger: logger}
}

// Begin opens a transaction and binds principalID to it. On any failure the
// transaction is rolled back and the connection released before returning.
func (m *Manager) Begin(ctx context.Context, principalID string) (*Scope, error) {
	stmt, err := setPrincipalSQL(principalID)
	if err != nil {
		return nil, err
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin row-scoped tx: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.logger.Error("rollback after failed principal binding", slog.String("error", rbErr.Error()))
		}
		return nil, fmt.Errorf("bind principal: %w", err)
	}

	return &Scope{tx: tx, principalID: principalID}, nil
}

// setPrincipalSQL builds the SET LOCAL statement for a principal. SET LOCAL
// does not accept bind parameters, so the id is interpolated into the SQL
// text. This is the only interpolation in the codebase and it is guarded by
// requiring the id to round-trip through uuid.Parse into the exact canonical
// lowercase form.
func setPrincipalSQL(principalID string) (string, error) {
	if len(principalID) != 36 {
		return "", ErrBadPrincipalID
	}
	u, err := uuid.Parse(principalID)
	if err != nil {
		return "", ErrBadPrincipalID
	}
	if u.String() != principalID {
		return "", ErrBadPrincipalID
	}
	return fmt.Sprintf("SET LOCAL app.current_user_id = '%s'", u.String()), nil
}
