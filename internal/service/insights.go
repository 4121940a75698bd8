package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

// Insights is a cross-store aggregate for the caller's coaching activity.
// Each section degrades independently: a failed source yields an empty
// section plus a warning, never a failed aggregate.
type Insights struct {
	BusinessSnapshot    map[string]string        `json:"business_snapshot"`
	BusinessVersion     string                   `json:"business_version,omitempty"`
	Sessions            []model.CoachingSession  `json:"sessions"`
	ActiveConversations []model.Conversation     `json:"active_conversations"`
	Warnings            []string                 `json:"warnings,omitempty"`
}

// InsightsService fans reads out across the three stores concurrently.
type InsightsService struct {
	conversations store.ConversationStore
	sessions      store.SessionStore
	business      store.BusinessStore
	logger        *zap.Logger
}

func NewInsightsService(conversations store.ConversationStore, sessions store.SessionStore, business store.BusinessStore, logger *zap.Logger) *InsightsService {
	return &InsightsService{
		conversations: conversations,
		sessions:      sessions,
		business:      business,
		logger:        logger,
	}
}

// Aggregate collects the tenant's business snapshot, the caller's sessions
// across all topics, and their active conversations.
func (s *InsightsService) Aggregate(ctx context.Context) (*Insights, error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	out := &Insights{
		BusinessSnapshot:    map[string]string{},
		Sessions:            []model.CoachingSession{},
		ActiveConversations: []model.Conversation{},
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	warn := func(section string, err error) {
		s.logger.Warn("insights section degraded", zap.String("section", section), zap.Error(err))
		mu.Lock()
		out.Warnings = append(out.Warnings, section+" unavailable")
		mu.Unlock()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		data, err := s.business.GetByTenant(ctx)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				warn("business_snapshot", err)
			}
			return
		}
		snapshot := make(map[string]string, 4)
		for _, field := range []model.BusinessField{model.FieldCoreValues, model.FieldPurpose, model.FieldVision, model.FieldGoals} {
			if v, _ := data.Value(field); v != "" {
				snapshot[string(field)] = v
			}
		}
		mu.Lock()
		out.BusinessSnapshot = snapshot
		out.BusinessVersion = data.Version
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		var sessions []model.CoachingSession
		for _, topic := range model.Topics() {
			batch, err := s.sessions.GetByUserAndTopic(ctx, tc.UserID, topic)
			if err != nil {
				warn("sessions", err)
				return
			}
			sessions = append(sessions, batch...)
		}
		mu.Lock()
		out.Sessions = sessions
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		convs, err := s.conversations.ListByUser(ctx, tc.UserID, store.ListOptions{Status: model.StatusActive})
		if err != nil {
			warn("active_conversations", err)
			return
		}
		mu.Lock()
		out.ActiveConversations = convs
		mu.Unlock()
	}()

	wg.Wait()
	return out, nil
}
