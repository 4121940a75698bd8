package tenant

import (
	"context"
	"fmt"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
)

// Owned is implemented by every record that belongs to a tenant partition.
type Owned interface {
	Owner() string
}

// Authorize checks a record read from any store against the caller's tenant.
// Every repository funnels reads through this single helper, so a new store
// type inherits isolation by construction. A mismatch is an access denial,
// not a not-found: the record exists but is invisible to this tenant.
func Authorize(ctx context.Context, record Owned) error {
	tc, err := Require(ctx)
	if err != nil {
		return err
	}
	if record.Owner() != tc.TenantID {
		return fmt.Errorf("record belongs to another tenant: %w", apperrors.ErrAccessDenied)
	}
	return nil
}
