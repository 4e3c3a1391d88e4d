package auth

import "context"

type securityContextKey struct{}

// WithSecurityContext returns a child context carrying the decision result.
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// SecurityContextFromContext retrieves the decision result placed by the
// middleware. The second return is false when the request never passed
// through the engine.
func SecurityContextFromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok
}
