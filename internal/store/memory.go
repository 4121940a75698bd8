package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

// conversationTTL is how long a transcript is retained after its last update.
const conversationTTL = 90 * 24 * time.Hour

// Memory is the in-memory implementation of all three stores. Every read is
// funneled through tenant.Authorize; every write stamps tenant and user from
// the caller's context, so a conflicting id in the payload is overwritten.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	sessions      map[string]*model.CoachingSession
	business      map[string]*model.BusinessData // keyed by tenant id
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*model.Conversation),
		sessions:      make(map[string]*model.CoachingSession),
		business:      make(map[string]*model.BusinessData),
	}
}

// ── ConversationStore ───────────────────────────────────────

func (m *Memory) Create(ctx context.Context, conv *model.Conversation) error {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	if conv.ID == "" {
		conv.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	conv.TenantID = tc.TenantID
	conv.UserID = tc.UserID
	conv.Context.TenantID = tc.TenantID
	if conv.Status == "" {
		conv.Status = model.StatusActive
	}
	conv.CreatedAt = now
	conv.UpdatedAt = now
	conv.ExpiresAt = now.Add(conversationTTL)

	m.mu.Lock()
	m.conversations[conv.ID] = cloneConversation(conv)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Conversation, error) {
	// Clone while the lock is held; the record is mutated in place by writers.
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, conv); err != nil {
		return nil, err
	}
	return cloneConversation(conv), nil
}

func (m *Memory) AddMessage(ctx context.Context, id string, msg model.Message) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, conv); err != nil {
		return nil, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	return cloneConversation(conv), nil
}

func (m *Memory) Update(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.conversations[conv.ID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conv.ID, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, existing); err != nil {
		return err
	}

	// Tenant id is immutable after creation; messages stay append-only, so
	// the stored transcript wins when the caller's copy is shorter.
	updated := cloneConversation(conv)
	updated.TenantID = existing.TenantID
	updated.UserID = existing.UserID
	updated.Context.TenantID = existing.TenantID
	updated.CreatedAt = existing.CreatedAt
	if len(updated.Messages) < len(existing.Messages) {
		updated.Messages = cloneMessages(existing.Messages)
	}
	updated.UpdatedAt = time.Now()
	m.conversations[conv.ID] = updated
	return nil
}

func (m *Memory) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Conversation, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Conversation
	for _, conv := range m.conversations {
		if conv.TenantID != tc.TenantID || conv.UserID != userID {
			continue
		}
		if opts.Status != "" && conv.Status != opts.Status {
			continue
		}
		if opts.Topic != "" && conv.Topic != opts.Topic {
			continue
		}
		out = append(out, *cloneConversation(conv))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, conv); err != nil {
		return err
	}

	conv.Status = model.StatusAbandoned
	conv.UpdatedAt = time.Now()
	return nil
}

// ── SessionStore ────────────────────────────────────────────

func (m *Memory) CreateSession(ctx context.Context, create model.SessionCreate) (*model.CoachingSession, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	sess := &model.CoachingSession{
		SessionID: create.SessionID,
		TenantID:  tc.TenantID,
		UserID:    tc.UserID,
		Topic:     create.Topic,
		Status:    model.SessionActive,
		SessionData: model.SessionMirror{
			ConversationID: create.ConversationID,
			Phase:          model.PhaseIntroduction,
			Language:       create.Language,
		},
		StartedAt: time.Now(),
	}
	if sess.SessionID == "" {
		sess.SessionID = uuid.Must(uuid.NewV7()).String()
	}

	m.mu.Lock()
	m.sessions[sess.SessionID] = cloneSession(sess)
	m.mu.Unlock()
	return sess, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*model.CoachingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, sess); err != nil {
		return nil, err
	}
	return cloneSession(sess), nil
}

func (m *Memory) UpdateSession(ctx context.Context, id string, update model.SessionUpdate) (*model.CoachingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, sess); err != nil {
		return nil, err
	}

	if update.Status != nil {
		sess.Status = *update.Status
	}
	if update.Outcomes != nil {
		sess.Outcomes = update.Outcomes
	}
	if update.OutcomesApplied != nil {
		sess.OutcomesApplied = *update.OutcomesApplied
	}
	if update.Mirror != nil {
		sess.SessionData = *update.Mirror
	}
	sess.TotalTokens += update.AddTokens
	sess.SessionCost += update.AddCost
	if update.Feedback != nil {
		sess.Feedback = *update.Feedback
	}
	if update.Rating != nil {
		sess.Rating = *update.Rating
	}
	if update.CompletedAt != nil {
		sess.CompletedAt = update.CompletedAt
	}
	return cloneSession(sess), nil
}

func (m *Memory) GetByUserAndTopic(ctx context.Context, userID string, topic model.Topic) ([]model.CoachingSession, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.CoachingSession
	for _, sess := range m.sessions {
		if sess.TenantID == tc.TenantID && sess.UserID == userID && sess.Topic == topic {
			out = append(out, *cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// ── BusinessStore ───────────────────────────────────────────

func (m *Memory) GetByTenant(ctx context.Context) (*model.BusinessData, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.business[tc.TenantID]
	if !ok {
		return nil, fmt.Errorf("business data for tenant: %w", apperrors.ErrNotFound)
	}
	if err := tenant.Authorize(ctx, data); err != nil {
		return nil, err
	}
	return cloneBusiness(data), nil
}

func (m *Memory) UpdateField(ctx context.Context, patch model.FieldPatch) (*model.BusinessData, error) {
	return m.UpdateFields(ctx, []model.FieldPatch{patch})
}

func (m *Memory) UpdateFields(ctx context.Context, patches []model.FieldPatch) (*model.BusinessData, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.business[tc.TenantID]
	if !ok {
		data = &model.BusinessData{
			BusinessID: tc.TenantID,
			TenantID:   tc.TenantID,
		}
		m.business[tc.TenantID] = data
	}
	if err := tenant.Authorize(ctx, data); err != nil {
		return nil, err
	}

	// Validate the whole patch set before mutating, so a bad field leaves
	// the record untouched.
	for _, p := range patches {
		if _, err := data.Value(p.Field); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	for _, p := range patches {
		prev, _ := data.Value(p.Field)
		if err := data.SetValue(p.Field, p.Value); err != nil {
			return nil, err
		}
		data.ChangeHistory = append(data.ChangeHistory, model.ChangeHistoryEntry{
			Timestamp:     now,
			UserID:        p.UpdatedBy,
			Field:         p.Field,
			PreviousValue: prev,
			NewValue:      p.Value,
			Source:        p.Source,
			Confidence:    p.Confidence,
		})
		data.LastUpdatedBy = p.UpdatedBy
	}
	data.Version = model.NextVersion(data.Version)
	data.UpdatedAt = now
	return cloneBusiness(data), nil
}

// ── clone helpers ───────────────────────────────────────────
// Stored records never escape the lock by reference.

func cloneConversation(c *model.Conversation) *model.Conversation {
	out := *c
	out.Messages = cloneMessages(c.Messages)
	out.Context.IdentifiedValues = append([]string(nil), c.Context.IdentifiedValues...)
	out.Context.KeyInsights = append([]string(nil), c.Context.KeyInsights...)
	if c.Context.BusinessContext != nil {
		out.Context.BusinessContext = make(map[string]string, len(c.Context.BusinessContext))
		for k, v := range c.Context.BusinessContext {
			out.Context.BusinessContext[k] = v
		}
	}
	return &out
}

func cloneMessages(msgs []model.Message) []model.Message {
	return append([]model.Message(nil), msgs...)
}

func cloneSession(s *model.CoachingSession) *model.CoachingSession {
	out := *s
	if s.Outcomes != nil {
		o := *s.Outcomes
		if s.Outcomes.ExtractedData != nil {
			o.ExtractedData = make(map[string]string, len(s.Outcomes.ExtractedData))
			for k, v := range s.Outcomes.ExtractedData {
				o.ExtractedData[k] = v
			}
		}
		out.Outcomes = &o
	}
	return &out
}

func cloneBusiness(b *model.BusinessData) *model.BusinessData {
	out := *b
	out.ChangeHistory = append([]model.ChangeHistoryEntry(nil), b.ChangeHistory...)
	return &out
}
