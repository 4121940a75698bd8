// Package outcome applies confidence-gated, audited updates from session
// outcomes into the shared business record.
package outcome

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
	"github.com/purposepath-ai/coaching-engine/internal/events"
	"github.com/purposepath-ai/coaching-engine/internal/llm"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/pkg/metrics"
)

// Config gates automated business-data writes.
type Config struct {
	// ConfidenceThreshold is the minimum extraction confidence for an
	// automatic write. Zero means every successful extraction passes the
	// gate; config.Load supplies the production default of 0.8.
	ConfidenceThreshold float64

	// AutoUpdate enables automatic writes at all.
	AutoUpdate bool

	// RequireApproval forces a human in the loop for this tenant
	// configuration; outcomes are recorded but never applied.
	RequireApproval bool
}

// Synchronizer extracts outcomes from a finished conversation and, when the
// gate passes, writes them into BusinessData with full change history. This is
// the only automated writer path into the shared record: low-confidence or
// failed extractions are recorded on the session for audit and go no further.
type Synchronizer struct {
	sessions  store.SessionStore
	business  store.BusinessStore
	gateway   llm.Gateway
	publisher *events.Publisher
	cfg       Config
	logger    *zap.Logger
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(
	sessions store.SessionStore,
	business store.BusinessStore,
	gateway llm.Gateway,
	publisher *events.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		sessions:  sessions,
		business:  business,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Synchronize runs outcome extraction for a conversation and conditionally
// applies the result. Returns whether BusinessData was updated. An extraction
// failure is returned for the caller to log; it must never abort completion.
func (s *Synchronizer) Synchronize(ctx context.Context, sessionID string, conv *model.Conversation) (bool, error) {
	spec, ok := model.LookupTopic(conv.Topic)
	if !ok {
		s.logger.Warn("no topic spec, skipping outcome extraction",
			zap.String("conversation_id", conv.ID),
			zap.String("topic", string(conv.Topic)))
		return false, nil
	}

	outcomes, err := s.gateway.ExtractOutcomes(ctx, conv.Messages, spec)
	if err != nil {
		metrics.RecordOutcomeSync(string(conv.Topic), "extraction_failed")
		if !errors.Is(err, apperrors.ErrExtraction) {
			err = fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
		}
		return false, err
	}

	// Record the extraction on the session regardless of the gate, so a
	// below-threshold result stays auditable.
	if _, err := s.sessions.UpdateSession(ctx, sessionID, model.SessionUpdate{Outcomes: outcomes}); err != nil {
		return false, fmt.Errorf("failed to record outcomes: %w", err)
	}

	if reason := s.gateReason(outcomes); reason != "" {
		s.logger.Info("outcomes recorded but not applied",
			zap.String("session_id", sessionID),
			zap.String("topic", string(conv.Topic)),
			zap.Float64("confidence", outcomes.Confidence),
			zap.String("reason", reason))
		metrics.RecordOutcomeSync(string(conv.Topic), reason)
		return false, nil
	}

	field := spec.BusinessField
	value := outcomes.ExtractedData[string(field)]
	if field == "" || value == "" {
		metrics.RecordOutcomeSync(string(conv.Topic), "no_mapped_value")
		return false, nil
	}

	previous := ""
	if current, err := s.business.GetByTenant(ctx); err == nil {
		previous, _ = current.Value(field)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("failed to read business data: %w", err)
	}

	updated, err := s.business.UpdateField(ctx, model.FieldPatch{
		Field:      field,
		Value:      value,
		UpdatedBy:  conv.UserID,
		Source:     "coaching_session:" + sessionID,
		Confidence: outcomes.Confidence,
	})
	if err != nil {
		return false, fmt.Errorf("failed to update business data: %w", err)
	}

	applied := true
	if _, err := s.sessions.UpdateSession(ctx, sessionID, model.SessionUpdate{OutcomesApplied: &applied}); err != nil {
		s.logger.Warn("failed to flag outcomes applied", zap.String("session_id", sessionID), zap.Error(err))
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:           events.TypeBusinessUpdated,
		TenantID:       conv.TenantID,
		UserID:         conv.UserID,
		ConversationID: conv.ID,
		SessionID:      sessionID,
		Topic:          conv.Topic,
		Payload: map[string]any{
			"field":          string(field),
			"previous_value": previous,
			"version":        updated.Version,
			"confidence":     outcomes.Confidence,
		},
	}); err != nil {
		s.logger.Warn("failed to publish business.updated event", zap.Error(err))
	}

	s.logger.Info("business data updated from session outcomes",
		zap.String("session_id", sessionID),
		zap.String("field", string(field)),
		zap.String("version", updated.Version),
		zap.Float64("confidence", outcomes.Confidence))
	metrics.RecordOutcomeSync(string(conv.Topic), "applied")
	return true, nil
}

// gateReason returns why an extraction must not be applied, or "" when the
// gate passes.
func (s *Synchronizer) gateReason(outcomes *model.SessionOutcomes) string {
	switch {
	case !outcomes.Success:
		return "extraction_unsuccessful"
	case outcomes.Confidence < s.cfg.ConfidenceThreshold:
		return "below_threshold"
	case !s.cfg.AutoUpdate:
		return "auto_update_disabled"
	case s.cfg.RequireApproval:
		return "approval_required"
	default:
		return ""
	}
}
