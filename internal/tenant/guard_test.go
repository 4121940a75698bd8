package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
)

type owned string

func (o owned) Owner() string { return string(o) }

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)

	ctx := NewContext(context.Background(), Context{TenantID: "t1", UserID: "u1"})
	tc, err := Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tc.TenantID)
	assert.Equal(t, "u1", tc.UserID)
}

func TestAuthorize(t *testing.T) {
	ctx := NewContext(context.Background(), Context{TenantID: "t1", UserID: "u1"})

	assert.NoError(t, Authorize(ctx, owned("t1")))
	assert.ErrorIs(t, Authorize(ctx, owned("t2")), apperrors.ErrAccessDenied)
	assert.ErrorIs(t, Authorize(context.Background(), owned("t1")), apperrors.ErrAccessDenied)
}
