package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

func testCtx() context.Context {
	return tenant.NewContext(context.Background(), tenant.Context{TenantID: "t1", UserID: "u1"})
}

func createSessions(t *testing.T, m *store.Memory, n int, status model.SessionStatus) {
	t.Helper()
	ctx := testCtx()
	for i := 0; i < n; i++ {
		sess, err := m.CreateSession(ctx, model.SessionCreate{Topic: model.TopicPurpose})
		require.NoError(t, err)
		if status != model.SessionActive {
			_, err = m.UpdateSession(ctx, sess.SessionID, model.SessionUpdate{Status: &status})
			require.NoError(t, err)
		}
	}
}

func TestCheckDeniesAtCeiling(t *testing.T) {
	m := store.NewMemory()
	e := NewEnforcer(m, map[model.Topic]int{model.TopicPurpose: 2})

	require.NoError(t, e.Check(testCtx(), "u1", model.TopicPurpose))

	createSessions(t, m, 2, model.SessionActive)
	err := e.Check(testCtx(), "u1", model.TopicPurpose)
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
}

func TestCheckCountsCompletedButNotAbandoned(t *testing.T) {
	m := store.NewMemory()
	e := NewEnforcer(m, map[model.Topic]int{model.TopicPurpose: 2})

	createSessions(t, m, 1, model.SessionCompleted)
	createSessions(t, m, 5, model.SessionAbandoned)

	// One completed + five abandoned = one counted, still under a limit of two.
	require.NoError(t, e.Check(testCtx(), "u1", model.TopicPurpose))

	createSessions(t, m, 1, model.SessionCompleted)
	assert.ErrorIs(t, e.Check(testCtx(), "u1", model.TopicPurpose), apperrors.ErrQuotaExceeded)
}

func TestCheckZeroMeansUnlimited(t *testing.T) {
	m := store.NewMemory()
	e := NewEnforcer(m, map[model.Topic]int{model.TopicPurpose: 0})

	createSessions(t, m, 25, model.SessionActive)
	assert.NoError(t, e.Check(testCtx(), "u1", model.TopicPurpose))
}

func TestCheckScopedToUserAndTopic(t *testing.T) {
	m := store.NewMemory()
	e := NewEnforcer(m, map[model.Topic]int{model.TopicPurpose: 1})

	createSessions(t, m, 1, model.SessionActive)

	// Other user is unaffected.
	assert.NoError(t, e.Check(testCtx(), "u2", model.TopicPurpose))
	// Other topic uses its own ceiling.
	assert.NoError(t, e.Check(testCtx(), "u1", model.TopicVision))
	// Same user and topic is at the ceiling.
	assert.ErrorIs(t, e.Check(testCtx(), "u1", model.TopicPurpose), apperrors.ErrQuotaExceeded)
}

func TestDefaultLimitComesFromTopicSpec(t *testing.T) {
	m := store.NewMemory()
	e := NewEnforcer(m, nil)

	spec, ok := model.LookupTopic(model.TopicPurpose)
	require.True(t, ok)
	createSessions(t, m, spec.MaxSessionsPerUser, model.SessionActive)
	assert.ErrorIs(t, e.Check(testCtx(), "u1", model.TopicPurpose), apperrors.ErrQuotaExceeded)
}
