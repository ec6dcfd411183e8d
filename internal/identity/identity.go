// Package identity carries the authenticated principal through request
// context. The auth middleware resolves credentials once; handlers and
// services trust the resolved principal without re-verifying.
package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebridge/telehealth-platform/internal/users"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   users.Role
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal if the request was authenticated.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
