package outcome

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/llm"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

type fakeGateway struct {
	outcomes *model.SessionOutcomes
	err      error
}

func (f *fakeGateway) GenerateReply(context.Context, []model.Message, model.TopicSpec, string, string) (*llm.Reply, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) ExtractOutcomes(context.Context, []model.Message, model.TopicSpec) (*model.SessionOutcomes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.outcomes, nil
}

func (f *fakeGateway) Name() string { return "fake" }

func setup(t *testing.T, gw llm.Gateway, cfg Config) (context.Context, *store.Memory, *Synchronizer, *model.Conversation) {
	t.Helper()
	ctx := tenant.NewContext(context.Background(), tenant.Context{TenantID: "tenant-a", UserID: "user-1"})

	mem := store.NewMemory()
	sess, err := mem.CreateSession(ctx, model.SessionCreate{Topic: model.TopicPurpose, ConversationID: "conv-1"})
	require.NoError(t, err)

	conv := &model.Conversation{
		ID:       "conv-1",
		TenantID: "tenant-a",
		UserID:   "user-1",
		Topic:    model.TopicPurpose,
		Messages: []model.Message{
			{Role: model.RoleAssistant, Content: "What drives your business?"},
			{Role: model.RoleUser, Content: "Helping small farms sell direct."},
		},
		Context: model.ConversationContext{SessionID: sess.SessionID},
	}

	sync := NewSynchronizer(mem, mem, gw, nil, cfg, zap.NewNop())
	return ctx, mem, sync, conv
}

func TestSynchronizeAppliesHighConfidenceOutcome(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:    true,
		Confidence: 0.9,
		ExtractedData: map[string]string{
			"purpose": "Help small farms sell direct to consumers",
		},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true, ConfidenceThreshold: 0.8})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.True(t, applied)

	data, err := mem.GetByTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Help small farms sell direct to consumers", data.Purpose)
	assert.Equal(t, "v1", data.Version)
	require.Len(t, data.ChangeHistory, 1)
	entry := data.ChangeHistory[0]
	assert.Equal(t, model.FieldPurpose, entry.Field)
	assert.Empty(t, entry.PreviousValue)
	assert.Equal(t, "Help small farms sell direct to consumers", entry.NewValue)
	assert.Equal(t, "coaching_session:"+conv.Context.SessionID, entry.Source)
	assert.InDelta(t, 0.9, entry.Confidence, 1e-9)

	sess, err := mem.GetByID(ctx, conv.Context.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.Outcomes)
	assert.True(t, sess.OutcomesApplied)
}

func TestSynchronizeRecordsButDoesNotApplyBelowThreshold(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:       true,
		Confidence:    0.5,
		ExtractedData: map[string]string{"purpose": "Something tentative"},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true, ConfidenceThreshold: 0.8})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = mem.GetByTenant(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sess, err := mem.GetByID(ctx, conv.Context.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.Outcomes)
	assert.InDelta(t, 0.5, sess.Outcomes.Confidence, 1e-9)
	assert.False(t, sess.OutcomesApplied)
}

func TestSynchronizeSkipsUnsuccessfulExtraction(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{Success: false, Confidence: 0.95}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = mem.GetByTenant(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSynchronizeHonorsAutoUpdateDisabled(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:       true,
		Confidence:    0.99,
		ExtractedData: map[string]string{"purpose": "Never written"},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: false})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = mem.GetByTenant(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSynchronizeHonorsRequireApproval(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:       true,
		Confidence:    0.99,
		ExtractedData: map[string]string{"purpose": "Pending approval"},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true, RequireApproval: true})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = mem.GetByTenant(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sess, err := mem.GetByID(ctx, conv.Context.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, sess.Outcomes)
}

func TestSynchronizeReturnsExtractionError(t *testing.T) {
	gw := &fakeGateway{err: apperrors.ErrExtraction}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
	assert.False(t, applied)

	sess, serr := mem.GetByID(ctx, conv.Context.SessionID)
	require.NoError(t, serr)
	assert.Nil(t, sess.Outcomes)
}

func TestSynchronizeCustomThreshold(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:       true,
		Confidence:    0.7,
		ExtractedData: map[string]string{"purpose": "Mid-confidence purpose"},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true, ConfidenceThreshold: 0.6})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.True(t, applied)

	data, err := mem.GetByTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mid-confidence purpose", data.Purpose)
}

func TestSynchronizeZeroThresholdAppliesAnySuccessfulExtraction(t *testing.T) {
	gw := &fakeGateway{outcomes: &model.SessionOutcomes{
		Success:       true,
		Confidence:    0.01,
		ExtractedData: map[string]string{"purpose": "Barely confident purpose"},
	}}
	ctx, mem, sync, conv := setup(t, gw, Config{AutoUpdate: true})

	applied, err := sync.Synchronize(ctx, conv.Context.SessionID, conv)
	require.NoError(t, err)
	assert.True(t, applied)

	data, err := mem.GetByTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Barely confident purpose", data.Purpose)
}
