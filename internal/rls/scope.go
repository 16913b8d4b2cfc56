package rls

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Scope is a request-bound transaction with a principal pinned to it via
// SET LOCAL. It satisfies database.DBTX, so row-scoped repositories run
// every query inside the bound transaction.
//
// Exactly one terminal action happens per Scope: the first Commit or
// Rollback wins and later calls are no-ops.
type Scope struct {
	tx          pgx.Tx
	principalID string

	mu          sync.Mutex
	done        bool
	afterCommit []func(ctx context.Context)
}

// PrincipalID returns the user id bound to this transaction.
func (s *Scope) PrincipalID() string { return s.principalID }

// Exec runs a statement inside the bound transaction.
func (s *Scope) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.tx.Exec(ctx, sql, args...)
}

// Query runs a query inside the bound transaction.
func (s *Scope) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.tx.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query inside the bound transaction.
func (s *Scope) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.tx.QueryRow(ctx, sql, args...)
}

// Begin opens a nested transaction (a savepoint) inside the bound transaction.
func (s *Scope) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.tx.Begin(ctx)
}

// AfterCommit registers fn to run once the transaction has committed.
// Side effects that must not precede durability, like notification delivery
// and event publishing, go here. Hooks never run on rollback.
func (s *Scope) AfterCommit(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.afterCommit = append(s.afterCommit, fn)
	s.mu.Unlock()
}

// Commit commits the bound transaction and runs the registered after-commit
// hooks. If a terminal action already happened it does nothing and reports
// success.
func (s *Scope) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	hooks := s.afterCommit
	s.mu.Unlock()

	if err := s.tx.Commit(ctx); err != nil {
		// A failed COMMIT leaves the transaction aborted server-side; the
		// explicit rollback is best-effort cleanup on the client side.
		_ = s.tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

// Rollback rolls the bound transaction back. If a terminal action already
// happened it does nothing.
func (s *Scope) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback(ctx)
}

// Finished reports whether a terminal action has happened.
func (s *Scope) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

type scopeContextKey struct{}

// WithScope returns a context carrying the request's Scope.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// FromContext returns the request's Scope, or nil when the request did not
// pass through the transaction middleware.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return s
}

// AfterCommit defers fn until the context's transaction commits. Outside a
// row-scoped transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if s := FromContext(ctx); s != nil {
		s.AfterCommit(fn)
		return
	}
	fn(ctx)
}
