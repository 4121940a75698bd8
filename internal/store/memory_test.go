package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

func ctxFor(tenantID, userID string) context.Context {
	return tenant.NewContext(context.Background(), tenant.Context{TenantID: tenantID, UserID: userID})
}

func TestConversationCreateStampsTenantFromContext(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	// A conflicting tenant id in the payload must not survive.
	conv := &model.Conversation{TenantID: "tenant-b", Topic: model.TopicPurpose}
	require.NoError(t, m.Create(ctx, conv))

	got, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, "tenant-a", got.Context.TenantID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestConversationTenantIsolation(t *testing.T) {
	m := NewMemory()
	ctxA := ctxFor("tenant-a", "user-1")
	ctxB := ctxFor("tenant-b", "user-1")

	conv := &model.Conversation{Topic: model.TopicVision}
	require.NoError(t, m.Create(ctxA, conv))

	// Cross-tenant read is an access denial, not a not-found.
	_, err := m.Get(ctxB, conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	// A genuinely missing conversation is a not-found.
	_, err = m.Get(ctxA, "no-such-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Listing never leaks across tenants.
	list, err := m.ListByUser(ctxB, "user-1", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	// Writes are guarded too.
	_, err = m.AddMessage(ctxB, conv.ID, model.Message{Role: model.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	assert.ErrorIs(t, m.Delete(ctxB, conv.ID), apperrors.ErrAccessDenied)
}

func TestAddMessagePreservesOrder(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	conv := &model.Conversation{Topic: model.TopicGoals}
	require.NoError(t, m.Create(ctx, conv))

	for i := 0; i < 10; i++ {
		_, err := m.AddMessage(ctx, conv.ID, model.Message{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("turn-%d", i),
		})
		require.NoError(t, err)
	}

	got, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 10)
	for i, msg := range got.Messages {
		assert.Equal(t, fmt.Sprintf("turn-%d", i), msg.Content)
	}
}

func TestUpdateCannotShrinkTranscriptOrMoveTenant(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	conv := &model.Conversation{Topic: model.TopicGoals}
	require.NoError(t, m.Create(ctx, conv))
	_, err := m.AddMessage(ctx, conv.ID, model.Message{Role: model.RoleAssistant, Content: "q1"})
	require.NoError(t, err)

	stale, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	stale.Messages = nil
	stale.TenantID = "tenant-b"
	stale.Status = model.StatusPaused
	require.NoError(t, m.Update(ctx, stale))

	got, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, model.StatusPaused, got.Status)
}

func TestDeleteMarksAbandoned(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	conv := &model.Conversation{Topic: model.TopicGoals}
	require.NoError(t, m.Create(ctx, conv))
	require.NoError(t, m.Delete(ctx, conv.ID))

	got, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbandoned, got.Status)
}

func TestSessionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	sess, err := m.CreateSession(ctx, model.SessionCreate{Topic: model.TopicPurpose, ConversationID: "conv-1"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, sess.Status)
	assert.Equal(t, "tenant-a", sess.TenantID)

	_, err = m.UpdateSession(ctx, sess.SessionID, model.SessionUpdate{AddTokens: 100, AddCost: 0.01})
	require.NoError(t, err)
	updated, err := m.UpdateSession(ctx, sess.SessionID, model.SessionUpdate{AddTokens: 50, AddCost: 0.005})
	require.NoError(t, err)
	assert.Equal(t, 150, updated.TotalTokens)
	assert.InDelta(t, 0.015, updated.SessionCost, 1e-9)

	// Cross-tenant session reads are denied.
	_, err = m.GetByID(ctxFor("tenant-b", "user-1"), sess.SessionID)
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)

	list, err := m.GetByUserAndTopic(ctx, "user-1", model.TopicPurpose)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBusinessUpdateAppendsHistoryAndBumpsVersion(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	_, err := m.GetByTenant(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	first, err := m.UpdateField(ctx, model.FieldPatch{
		Field: model.FieldPurpose, Value: "Help small bakeries thrive", UpdatedBy: "user-1",
		Source: "direct_api", Confidence: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", first.Version)
	require.Len(t, first.ChangeHistory, 1)
	assert.Equal(t, "", first.ChangeHistory[0].PreviousValue)
	assert.Equal(t, "Help small bakeries thrive", first.ChangeHistory[0].NewValue)

	second, err := m.UpdateField(ctx, model.FieldPatch{
		Field: model.FieldPurpose, Value: "Help bakeries thrive sustainably", UpdatedBy: "user-1",
		Source: "direct_api", Confidence: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", second.Version)
	require.Len(t, second.ChangeHistory, 2)
	assert.Equal(t, "Help small bakeries thrive", second.ChangeHistory[1].PreviousValue)

	// Unknown field leaves the record untouched.
	_, err = m.UpdateField(ctx, model.FieldPatch{Field: "mascot", Value: "capercaillie"})
	require.Error(t, err)
	got, err := m.GetByTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)

	// Other tenants cannot see the record.
	_, err = m.GetByTenant(ctxFor("tenant-b", "user-1"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	m := NewMemory()
	ctx := ctxFor("tenant-a", "user-1")

	conv := &model.Conversation{Topic: model.TopicPurpose}
	require.NoError(t, m.Create(ctx, conv))
	sess, err := m.CreateSession(ctx, model.SessionCreate{Topic: model.TopicPurpose, ConversationID: conv.ID})
	require.NoError(t, err)
	_, err = m.UpdateField(ctx, model.FieldPatch{
		Field: model.FieldPurpose, Value: "Initial purpose", UpdatedBy: "user-1", Source: "direct_api",
	})
	require.NoError(t, err)

	// Readers must clone under the lock: writers mutate records in place, so
	// an unlocked read of the same record races with them.
	const iterations = 50
	var wg sync.WaitGroup
	wg.Add(6)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := m.AddMessage(ctx, conv.ID, model.Message{Role: model.RoleUser, Content: fmt.Sprintf("turn %d", i)})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			got, err := m.Get(ctx, conv.ID)
			assert.NoError(t, err)
			assert.Equal(t, "tenant-a", got.TenantID)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := m.UpdateSession(ctx, sess.SessionID, model.SessionUpdate{AddTokens: 10, AddCost: 0.001})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			got, err := m.GetByID(ctx, sess.SessionID)
			assert.NoError(t, err)
			assert.Equal(t, model.TopicPurpose, got.Topic)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := m.UpdateField(ctx, model.FieldPatch{
				Field: model.FieldPurpose, Value: fmt.Sprintf("Purpose rev %d", i),
				UpdatedBy: "user-1", Source: "direct_api",
			})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			got, err := m.GetByTenant(ctx)
			assert.NoError(t, err)
			assert.NotEmpty(t, got.Version)
		}
	}()

	wg.Wait()

	got, err := m.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, iterations)

	gotSess, err := m.GetByID(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, iterations*10, gotSess.TotalTokens)
}
