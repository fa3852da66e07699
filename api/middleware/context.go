package middleware

import (
	"context"

	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/auth"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	identity, ok := ctx.Value(ctxIdentity).(auth.Identity)
	return identity, ok
}

// ActorFromContext converts the authenticated identity into the actor record
// the domain services authorize against.
func ActorFromContext(ctx context.Context) (permissions.Actor, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return permissions.Actor{}, false
	}
	return permissions.Actor{UserID: identity.UserID, IsAdmin: identity.IsAdmin}, true
}

// WithIdentity injects the identity into the context. Exported for tests and
// for internal tools that act on behalf of a fixed operator.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}
