package middleware

import (
	"context"

	goRealm "github.com/MrEthical07/goRealm"
)

type principalContextKey struct{}
type sessionIDContextKey struct{}

// PrincipalFromContext returns the principal Access attached to ctx.
func PrincipalFromContext(ctx context.Context) (goRealm.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(goRealm.Principal)
	return p, ok
}

// SessionIDFromContext returns the id of the authenticated session behind ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey{}).(string)
	return id, ok && id != ""
}
