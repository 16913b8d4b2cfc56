package auth

import (
	"context"

	"github.com/inkwellhq/inkwell/internal/domain"
)

type principalContextKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request has not passed the authentication gate.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*domain.Principal)
	return p
}
