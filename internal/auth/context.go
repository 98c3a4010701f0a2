package auth

import "context"

type sessionContextKey struct{}
type keyContextKey struct{}

// ContextWithSession attaches a dashboard identity to the context.
func ContextWithSession(ctx context.Context, id SessionIdentity) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, &id)
}

// SessionFromContext extracts the dashboard identity from the context.
func SessionFromContext(ctx context.Context) (SessionIdentity, bool) {
	if ctx == nil {
		return SessionIdentity{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(*SessionIdentity)
	if !ok || v == nil {
		return SessionIdentity{}, false
	}
	return *v, true
}

// ContextWithKey attaches an API key identity to the context.
func ContextWithKey(ctx context.Context, id KeyIdentity) context.Context {
	return context.WithValue(ctx, keyContextKey{}, &id)
}

// KeyFromContext returns the API key identity if one was attached.
func KeyFromContext(ctx context.Context) (KeyIdentity, bool) {
	if ctx == nil {
		return KeyIdentity{}, false
	}
	v, ok := ctx.Value(keyContextKey{}).(*KeyIdentity)
	if !ok || v == nil {
		return KeyIdentity{}, false
	}
	return *v, true
}
