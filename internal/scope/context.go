package scope

import (
	"context"
	"fmt"
)

type tenantContextKey struct{}

// WithTenant returns a context carrying the given tenant identifier. The
// scoped client stamps its binding into every outgoing context so that store
// drivers and background collaborators can observe the active tenant without
// any process-global state. Each unit of work carries its own context value;
// two concurrently live bindings never interfere.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// FromContext reports the tenant identifier bound to ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// RequireTenant returns the tenant bound to ctx or ErrMissingTenantContext.
func RequireTenant(ctx context.Context) (string, error) {
	tenantID, ok := FromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: no tenant bound to context", ErrMissingTenantContext)
	}
	return tenantID, nil
}
