// Package orgcontext carries the caller's resolved tenant scope through the
// request context. Every read path derives its visibility from this scope;
// nothing below the middleware re-resolves it.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Scope is the caller's organization and (optional) department membership.
type Scope struct {
	OrgID        snowflake.ID
	DepartmentID *snowflake.ID
}

type scopeKey struct{}

// WithScope stores the tenant scope in the context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the tenant scope from context, if set.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	return scope, ok
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	scope, ok := ScopeFromContext(ctx)
	if !ok || scope.OrgID == 0 {
		return 0, false
	}
	return scope.OrgID, true
}
