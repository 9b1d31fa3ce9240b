// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by the fake API's middleware and read by its
// handlers and store.
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithPrincipal(ctx, userID, role, tokenID)
//	ctx = requestcontext.WithClientMetadata(ctx, clientIP, userAgent)
package requestcontext

import "context"

type (
	userIDKey    struct{}
	roleKey      struct{}
	tokenIDKey   struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
)

// UserID returns the authenticated user's id, or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}

// Role returns the authenticated user's role, or "".
func Role(ctx context.Context) string {
	v, _ := ctx.Value(roleKey{}).(string)
	return v
}

// TokenID returns the jti of the bearer token the request carried.
func TokenID(ctx context.Context) string {
	v, _ := ctx.Value(tokenIDKey{}).(string)
	return v
}

// WithPrincipal records who made the request.
func WithPrincipal(ctx context.Context, userID, role, tokenID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	ctx = context.WithValue(ctx, roleKey{}, role)
	return context.WithValue(ctx, tokenIDKey{}, tokenID)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithClientMetadata injects both client IP and user agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}
