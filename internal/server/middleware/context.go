package middleware

import (
	"context"

	"taskboard/backend/internal/token"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	holderKey   = contextKey{"identity_holder"}
	clientIPKey = contextKey{"client_ip"}
)

// identityHolder lets outer middleware observe an identity that inner
// middleware establishes later in the chain.
type identityHolder struct {
	id *token.Identity
}

// WithIdentity returns a context carrying the validated session identity.
// Handlers read it back via IdentityFrom. If an outer middleware installed a
// holder, it is back-filled too.
func WithIdentity(ctx context.Context, id *token.Identity) context.Context {
	if h, ok := ctx.Value(holderKey).(*identityHolder); ok {
		h.id = id
	}
	return context.WithValue(ctx, identityKey, id)
}

// withIdentityHolder installs a holder so the identity set by RequireSession
// deeper in the chain is visible after the handler returns.
func withIdentityHolder(ctx context.Context) (context.Context, *identityHolder) {
	h := &identityHolder{}
	return context.WithValue(ctx, holderKey, h), h
}

// IdentityFrom returns the session identity from context and true if set;
// otherwise nil, false.
func IdentityFrom(ctx context.Context) (*token.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*token.Identity)
	return id, ok
}
