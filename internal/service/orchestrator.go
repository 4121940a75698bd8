// Package service composes the stores, quota enforcer, cost ledger, LLM
// gateway and outcome synchronizer into the conversation orchestration flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/cache"
	"github.com/purposepath-ai/coaching-engine/internal/cost"
	"github.com/purposepath-ai/coaching-engine/internal/events"
	"github.com/purposepath-ai/coaching-engine/internal/llm"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/outcome"
	"github.com/purposepath-ai/coaching-engine/internal/quota"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
	"github.com/purposepath-ai/coaching-engine/pkg/metrics"
)

// Handle is returned from Initiate: the new conversation plus its first
// coach question.
type Handle struct {
	ConversationID string  `json:"conversation_id"`
	SessionID      string  `json:"session_id"`
	Question       string  `json:"question"`
	Progress       float64 `json:"progress"`
}

// Reply is the result of processing one user message.
type Reply struct {
	Content             string  `json:"content"`
	FollowUpQuestion    string  `json:"follow_up_question,omitempty"`
	Progress            float64 `json:"progress"`
	Completed           bool    `json:"completed"`
	BusinessDataUpdated bool    `json:"business_data_updated"`
	Tokens              int     `json:"tokens"`
	Cost                float64 `json:"cost"`
}

// CompletionSummary is returned from Complete.
type CompletionSummary struct {
	ConversationID      string  `json:"conversation_id"`
	SessionID           string  `json:"session_id"`
	TotalTokens         int     `json:"total_tokens"`
	SessionCost         float64 `json:"session_cost"`
	OutcomesRecorded    bool    `json:"outcomes_recorded"`
	BusinessDataUpdated bool    `json:"business_data_updated"`
}

// Orchestrator is the top-level coaching conversation service. Each operation
// runs to completion within the request; it performs no automatic retries —
// transient store errors surface to the caller as retryable.
type Orchestrator struct {
	conversations store.ConversationStore
	sessions      store.SessionStore
	business      store.BusinessStore
	sessionCache  cache.Cache
	gateway       llm.Gateway
	quota         *quota.Enforcer
	synchronizer  *outcome.Synchronizer
	publisher     *events.Publisher
	logger        *zap.Logger
}

// NewOrchestrator creates an orchestrator. All collaborators are constructor
// injected; the publisher may be nil.
func NewOrchestrator(
	conversations store.ConversationStore,
	sessions store.SessionStore,
	business store.BusinessStore,
	sessionCache cache.Cache,
	gateway llm.Gateway,
	quotaEnforcer *quota.Enforcer,
	synchronizer *outcome.Synchronizer,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		sessions:      sessions,
		business:      business,
		sessionCache:  sessionCache,
		gateway:       gateway,
		quota:         quotaEnforcer,
		synchronizer:  synchronizer,
		publisher:     publisher,
		logger:        logger,
	}
}

// Initiate starts a new coaching conversation for a topic. The quota check
// runs before any store mutation, so a denial leaves no partial state.
func (o *Orchestrator) Initiate(ctx context.Context, topic model.Topic, contextData map[string]string, language string) (*Handle, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	spec, ok := model.LookupTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidTopic, topic)
	}
	if language == "" {
		language = "en"
	}

	if err := o.quota.Check(ctx, tc.UserID, topic); err != nil {
		if errors.Is(err, apperrors.ErrQuotaExceeded) {
			metrics.QuotaDeniedTotal.WithLabelValues(tc.TenantID, string(topic)).Inc()
		}
		return nil, err
	}

	conversationID := uuid.Must(uuid.NewV7()).String()
	sess, err := o.sessions.CreateSession(ctx, model.SessionCreate{
		Topic:          topic,
		ConversationID: conversationID,
		Language:       language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	conv := &model.Conversation{
		ID:     conversationID,
		Topic:  topic,
		Status: model.StatusActive,
		Messages: []model.Message{{
			Role:      model.RoleAssistant,
			Content:   spec.OpeningMessage,
			Timestamp: time.Now(),
		}},
		Context: model.ConversationContext{
			Phase:           model.PhaseIntroduction,
			SessionID:       sess.SessionID,
			BusinessContext: contextData,
			Language:        language,
		},
	}
	if err := o.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	o.mirrorToCache(ctx, conv)
	metrics.SessionsInitiatedTotal.WithLabelValues(tc.TenantID, string(topic)).Inc()
	o.publish(ctx, events.Event{
		Type:           events.TypeConversationInitiated,
		TenantID:       tc.TenantID,
		UserID:         tc.UserID,
		ConversationID: conv.ID,
		SessionID:      sess.SessionID,
		Topic:          topic,
	})

	o.logger.Info("conversation initiated",
		zap.String("conversation_id", conv.ID),
		zap.String("session_id", sess.SessionID),
		zap.String("tenant_id", tc.TenantID),
		zap.String("topic", string(topic)))

	return &Handle{
		ConversationID: conv.ID,
		SessionID:      sess.SessionID,
		Question:       spec.OpeningMessage,
		Progress:       conv.Progress(),
	}, nil
}

// ProcessMessage appends a user turn, generates the coach reply with business
// context, accounts tokens and cost, and triggers outcome synchronization
// when the reply signals the topic is fully explored.
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID, content string, metadata map[string]string) (*Reply, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status.Terminal() {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, apperrors.ErrAlreadyCompleted)
	}
	if conv.Status == model.StatusPaused {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, apperrors.ErrConversationPaused)
	}

	conv, err = o.conversations.AddMessage(ctx, conversationID, model.Message{
		Role:     model.RoleUser,
		Content:  content,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tc.TenantID, string(model.RoleUser)).Inc()

	// Phase advances on user response count; it never regresses.
	conv.Context.ResponseCount++
	conv.Context.AdvanceTo(model.PhaseForResponseCount(conv.Context.ResponseCount))

	spec, _ := model.LookupTopic(conv.Topic)
	reply, err := o.gateway.GenerateReply(ctx, conv.Messages, spec, o.businessSnapshot(ctx), conv.Context.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	usage := cost.NormalizeUsage(reply.TokenUsage.Input, reply.TokenUsage.Output, 0)
	msgCost := cost.MessageCost(reply.ModelID, usage)

	conv.Context.KeyInsights = mergeInsights(conv.Context.KeyInsights, reply.Insights)
	if reply.IsComplete {
		conv.Context.AdvanceTo(model.PhaseCompletion)
	}
	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to update conversation context: %w", err)
	}

	conv, err = o.conversations.AddMessage(ctx, conversationID, model.Message{
		Role:       model.RoleAssistant,
		Content:    reply.Content,
		TokenUsage: &usage,
		Cost:       &msgCost,
		ModelID:    &reply.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tc.TenantID, string(model.RoleAssistant)).Inc()
	metrics.RecordLLMUsage(reply.ModelID, "reply", float64(reply.LatencyMs)/1000.0, usage.Input, usage.Output, msgCost)

	mirror := mirrorOf(conv)
	if _, err := o.sessions.UpdateSession(ctx, conv.Context.SessionID, model.SessionUpdate{
		AddTokens: usage.Total(),
		AddCost:   msgCost,
		Mirror:    &mirror,
	}); err != nil {
		return nil, fmt.Errorf("failed to update session totals: %w", err)
	}
	o.mirrorToCache(ctx, conv)

	applied := false
	if reply.IsComplete {
		applied, err = o.synchronizer.Synchronize(ctx, conv.Context.SessionID, conv)
		if err != nil {
			// Best-effort side effect; the turn still succeeds.
			o.logger.Warn("outcome synchronization failed",
				zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	o.publish(ctx, events.Event{
		Type:           events.TypeMessageProcessed,
		TenantID:       tc.TenantID,
		UserID:         tc.UserID,
		ConversationID: conv.ID,
		SessionID:      conv.Context.SessionID,
		Topic:          conv.Topic,
		Payload:        map[string]any{"tokens": usage.Total(), "cost": msgCost},
	})

	return &Reply{
		Content:             reply.Content,
		FollowUpQuestion:    reply.FollowUpQuestion,
		Progress:            conv.Progress(),
		Completed:           reply.IsComplete,
		BusinessDataUpdated: applied,
		Tokens:              usage.Total(),
		Cost:                msgCost,
	}, nil
}

// Complete finishes a conversation. Completion is a user-facing guarantee:
// the conversation transitions to completed even when outcome extraction
// fails; synchronization is a best-effort side effect.
func (o *Orchestrator) Complete(ctx context.Context, conversationID, feedback string, rating int) (*CompletionSummary, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status.Terminal() {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, apperrors.ErrAlreadyCompleted)
	}

	now := time.Now()
	conv.Status = model.StatusCompleted
	conv.CompletedAt = &now
	conv.Context.AdvanceTo(model.PhaseCompletion)
	if err := o.conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to complete conversation: %w", err)
	}

	// Reconciliation read: re-fetch session state rather than trusting any
	// in-memory copy, since a ProcessMessage turn may already have extracted.
	sess, err := o.sessions.GetByID(ctx, conv.Context.SessionID)
	if err != nil {
		return nil, err
	}

	applied := sess.OutcomesApplied
	if sess.Outcomes == nil {
		ok, syncErr := o.synchronizer.Synchronize(ctx, sess.SessionID, conv)
		if syncErr != nil {
			o.logger.Warn("outcome synchronization skipped",
				zap.String("session_id", sess.SessionID), zap.Error(syncErr))
		} else {
			applied = ok
		}
	}

	completed := model.SessionCompleted
	update := model.SessionUpdate{Status: &completed, CompletedAt: &now}
	if feedback != "" {
		update.Feedback = &feedback
	}
	if rating != 0 {
		update.Rating = &rating
	}
	sess, err = o.sessions.UpdateSession(ctx, sess.SessionID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	metrics.SessionsCompletedTotal.WithLabelValues(tc.TenantID, string(conv.Topic)).Inc()
	o.publish(ctx, events.Event{
		Type:           events.TypeSessionCompleted,
		TenantID:       tc.TenantID,
		UserID:         tc.UserID,
		ConversationID: conv.ID,
		SessionID:      sess.SessionID,
		Topic:          conv.Topic,
		Payload: map[string]any{
			"total_tokens":          sess.TotalTokens,
			"session_cost":          sess.SessionCost,
			"business_data_updated": applied,
		},
	})

	o.logger.Info("conversation completed",
		zap.String("conversation_id", conv.ID),
		zap.String("session_id", sess.SessionID),
		zap.Bool("business_data_updated", applied))

	return &CompletionSummary{
		ConversationID:      conv.ID,
		SessionID:           sess.SessionID,
		TotalTokens:         sess.TotalTokens,
		SessionCost:         sess.SessionCost,
		OutcomesRecorded:    sess.Outcomes != nil,
		BusinessDataUpdated: applied,
	}, nil
}

// Pause suspends an active conversation. Pausing an already paused
// conversation is a no-op; pausing a terminal one is rejected.
func (o *Orchestrator) Pause(ctx context.Context, conversationID string) error {
	return o.setStatus(ctx, conversationID, model.StatusPaused)
}

// Resume reactivates a paused conversation. Phase is untouched.
func (o *Orchestrator) Resume(ctx context.Context, conversationID string) error {
	return o.setStatus(ctx, conversationID, model.StatusActive)
}

func (o *Orchestrator) setStatus(ctx context.Context, conversationID string, next model.Status) error {
	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status.Terminal() {
		return fmt.Errorf("conversation %s: %w", conversationID, apperrors.ErrAlreadyCompleted)
	}
	if conv.Status == next {
		return nil
	}
	if !conv.Status.CanTransition(next) {
		return fmt.Errorf("cannot transition conversation %s from %s to %s", conversationID, conv.Status, next)
	}
	conv.Status = next
	return o.conversations.Update(ctx, conv)
}

// Abandon soft-deletes a conversation and its session.
func (o *Orchestrator) Abandon(ctx context.Context, conversationID string) error {
	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status.Terminal() {
		return fmt.Errorf("conversation %s: %w", conversationID, apperrors.ErrAlreadyCompleted)
	}
	if err := o.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}

	abandoned := model.SessionAbandoned
	if _, err := o.sessions.UpdateSession(ctx, conv.Context.SessionID, model.SessionUpdate{Status: &abandoned}); err != nil {
		return fmt.Errorf("failed to abandon session: %w", err)
	}
	return nil
}

// Get returns one conversation, tenant-checked.
func (o *Orchestrator) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return o.conversations.Get(ctx, conversationID)
}

// List returns the caller's conversations, newest first.
func (o *Orchestrator) List(ctx context.Context, opts store.ListOptions) ([]model.Conversation, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return o.conversations.ListByUser(ctx, tc.UserID, opts)
}

// businessSnapshot renders the tenant's current business record for prompt
// context. Absent data degrades to an empty snapshot.
func (o *Orchestrator) businessSnapshot(ctx context.Context) string {
	data, err := o.business.GetByTenant(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			o.logger.Warn("failed to load business context", zap.Error(err))
		}
		return ""
	}

	var b strings.Builder
	for _, field := range []model.BusinessField{model.FieldPurpose, model.FieldCoreValues, model.FieldVision, model.FieldGoals} {
		if v, _ := data.Value(field); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", field, v)
		}
	}
	return b.String()
}

// SessionState returns the lightweight state of a conversation (phase,
// progress, status, counters) without loading the transcript. Served from the
// cache mirror when the cached copy belongs to the caller's tenant; any miss,
// foreign copy or cache failure falls back to the authoritative store.
func (o *Orchestrator) SessionState(ctx context.Context, conversationID string) (map[string]string, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := o.sessionCache.GetSessionData(ctx, conversationID)
	if err != nil {
		o.logger.Warn("session cache read failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	} else if len(cached) > 0 && cached["tenant_id"] == tc.TenantID {
		return cached, nil
	}

	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	o.mirrorToCache(ctx, conv)
	return sessionState(conv), nil
}

// sessionState flattens the cacheable slice of conversation state.
func sessionState(conv *model.Conversation) map[string]string {
	return map[string]string{
		"tenant_id":      conv.TenantID,
		"session_id":     conv.Context.SessionID,
		"topic":          string(conv.Topic),
		"status":         string(conv.Status),
		"phase":          string(conv.Context.Phase),
		"progress":       strconv.FormatFloat(conv.Progress(), 'f', -1, 64),
		"response_count": strconv.Itoa(conv.Context.ResponseCount),
		"language":       conv.Context.Language,
	}
}

// mirrorToCache pushes the session mirror into the cache. Advisory only: a
// failure is logged, never surfaced.
func (o *Orchestrator) mirrorToCache(ctx context.Context, conv *model.Conversation) {
	if err := o.sessionCache.SaveSessionData(ctx, conv.ID, sessionState(conv)); err != nil {
		o.logger.Warn("failed to mirror session state",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if err := o.publisher.Publish(ctx, e); err != nil {
		o.logger.Warn("failed to publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func mirrorOf(conv *model.Conversation) model.SessionMirror {
	return model.SessionMirror{
		ConversationID: conv.ID,
		Phase:          conv.Context.Phase,
		ResponseCount:  conv.Context.ResponseCount,
		Language:       conv.Context.Language,
	}
}

func mergeInsights(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s]; !ok && s != "" {
			existing = append(existing, s)
			seen[s] = struct{}{}
		}
	}
	return existing
}
