package identity

import "context"

type identityKey struct{}

// WithIdentity stores the resolved caller in the context.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// FromContext returns the resolved caller from context, if set.
func FromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	ident, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || ident == nil {
		return nil, false
	}
	return ident, true
}
