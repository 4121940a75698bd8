// Package quota enforces the per-topic session ceiling for a user.
package quota

import (
	"context"
	"fmt"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
)

// Enforcer checks session counts against topic ceilings. The check is a
// product guardrail, not a correctness-critical limit: concurrent initiations
// can race past the count-then-create window, and that is accepted. If
// stronger guarantees are ever required, the strategy is a conditional write
// on a per-(tenant,user,topic) counter record, not a pre-check count.
type Enforcer struct {
	sessions  store.SessionStore
	overrides map[model.Topic]int
}

// NewEnforcer creates an enforcer. Overrides replace the per-topic defaults;
// an override of 0 makes the topic unlimited.
func NewEnforcer(sessions store.SessionStore, overrides map[model.Topic]int) *Enforcer {
	return &Enforcer{sessions: sessions, overrides: overrides}
}

// Check allows or denies a new session for (tenant, user, topic). Sessions in
// active or completed state count against the ceiling; abandoned ones do not.
// Runs before any store mutation, so a denial leaves no partial state.
func (e *Enforcer) Check(ctx context.Context, userID string, topic model.Topic) error {
	limit := e.limitFor(topic)
	if limit <= 0 {
		return nil
	}

	existing, err := e.sessions.GetByUserAndTopic(ctx, userID, topic)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}

	count := 0
	for _, sess := range existing {
		if sess.Status == model.SessionActive || sess.Status == model.SessionCompleted {
			count++
		}
	}
	if count >= limit {
		return fmt.Errorf("%w: %d of %d sessions used for topic %s",
			apperrors.ErrQuotaExceeded, count, limit, topic)
	}
	return nil
}

func (e *Enforcer) limitFor(topic model.Topic) int {
	if override, ok := e.overrides[topic]; ok {
		return override
	}
	if spec, ok := model.LookupTopic(topic); ok {
		return spec.MaxSessionsPerUser
	}
	return 0
}
