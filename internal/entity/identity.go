package entity

import (
	"context"
	"strings"
)

// Identity is the authenticated caller as asserted by the upstream gateway.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

type identityKey struct{}

// ContextWithIdentity attaches the caller identity to ctx.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller identity, or false when the request is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(identity.UserID) == "" {
		return Identity{}, false
	}
	return identity, true
}
