// Package tenant carries the caller's tenant identity through request contexts
// and enforces the isolation invariant on every store access.
package tenant

import (
	"context"
	"fmt"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
)

type contextKey struct{}

// Context identifies the caller for the duration of one request.
type Context struct {
	TenantID string
	UserID   string
}

// NewContext returns a child context carrying the tenant identity.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant identity, if present.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}

// Require extracts the tenant identity and fails when it is missing.
// Store and service code call this instead of trusting caller-supplied ids.
func Require(ctx context.Context) (Context, error) {
	tc, ok := FromContext(ctx)
	if !ok || tc.TenantID == "" {
		return Context{}, fmt.Errorf("no tenant in context: %w", apperrors.ErrAccessDenied)
	}
	return tc, nil
}
