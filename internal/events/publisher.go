package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

const (
	// StreamName is the name of the coaching events stream.
	StreamName = "COACHING"

	// SubjectPrefix is the prefix for all coaching event subjects.
	SubjectPrefix = "coaching"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeConversationInitiated Type = "conversation.initiated"
	TypeMessageProcessed      Type = "conversation.message"
	TypeSessionCompleted      Type = "session.completed"
	TypeBusinessUpdated       Type = "business.updated"
)

// Event is one coaching lifecycle event.
type Event struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	TenantID       string         `json:"tenant_id"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	Topic          model.Topic    `json:"topic,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Publisher publishes lifecycle events. A nil Publisher is valid and drops
// every event, so callers need no NATS wiring in tests or degraded setups.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream creates the coaching stream if it does not exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Coaching lifecycle audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// subject routes events per tenant: coaching.<tenant>.<type>.
func subject(e Event) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.TenantID, e.Type)
}

// Publish emits one event. Best effort: callers log failures and move on, the
// triggering operation never depends on the feed.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if p == nil {
		return nil
	}

	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.client.JetStream().Publish(ctx, subject(e), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
