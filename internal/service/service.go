// Package service implements the application's business logic on top of the
// repository layer. Services that act for an authenticated user read the
// principal and the row-scoped transaction from the request context; the
// auth service runs on the shared pool instead.
package service

import (
	"context"
	"errors"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/domain"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/pkg/database"
	apperrors "github.com/inkwellhq/inkwell/pkg/errors"
)

// scopeDB returns the row-scoped transaction bound to the request. Reaching
// a row-scoped service without one is a wiring bug, not a user error.
func scopeDB(ctx context.Context) (database.DBTX, error) {
	if s := rls.FromContext(ctx); s != nil {
		return s, nil
	}
	return nil, apperrors.Internal(errors.New("no row-scoped transaction bound to context"))
}

// principalFrom returns the authenticated principal from the context.
func principalFrom(ctx context.Context) (*domain.Principal, error) {
	if p := auth.PrincipalFromContext(ctx); p != nil {
		return p, nil
	}
	return nil, apperrors.Unauthorized("no authenticated principal")
}
