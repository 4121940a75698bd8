// Package store defines the logical repository contracts consumed by the
// coaching engine, together with a mutex-guarded in-memory implementation.
// Handlers and services depend only on the interfaces, so swapping in a
// document-store-backed implementation never touches the orchestration code.
package store

import (
	"context"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

// ListOptions filters conversation listings. Zero values mean "any".
type ListOptions struct {
	Status model.Status
	Topic  model.Topic
	Limit  int
}

// ConversationStore persists conversation transcripts and phase context.
// The store is the single source of truth for message order.
type ConversationStore interface {
	// Create persists a new conversation, stamping tenant and user from context.
	Create(ctx context.Context, conv *model.Conversation) error

	// Get returns a conversation by id. The read is tenant-checked: a record
	// owned by another tenant yields an access denial, a missing record a
	// not-found.
	Get(ctx context.Context, id string) (*model.Conversation, error)

	// AddMessage appends a message and returns the updated conversation.
	// Messages are append-only; existing turns are never rewritten.
	AddMessage(ctx context.Context, id string, msg model.Message) (*model.Conversation, error)

	// Update replaces the mutable attributes (status, context, timestamps).
	Update(ctx context.Context, conv *model.Conversation) error

	// ListByUser returns the caller's conversations, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Conversation, error)

	// Delete soft-deletes a conversation by marking it abandoned.
	Delete(ctx context.Context, id string) error
}

// SessionStore persists one coaching-session ledger per conversation.
type SessionStore interface {
	CreateSession(ctx context.Context, create model.SessionCreate) (*model.CoachingSession, error)
	GetByID(ctx context.Context, id string) (*model.CoachingSession, error)
	UpdateSession(ctx context.Context, id string, update model.SessionUpdate) (*model.CoachingSession, error)
	GetByUserAndTopic(ctx context.Context, userID string, topic model.Topic) ([]model.CoachingSession, error)
}

// BusinessStore persists the shared, versioned business record of a tenant.
// Writes are read-modify-write with an appended change-history entry and a
// version bump, applied as one logical update.
type BusinessStore interface {
	// GetByTenant returns the tenant's record, or ErrNotFound when no write
	// has happened yet.
	GetByTenant(ctx context.Context) (*model.BusinessData, error)

	// UpdateField applies one audited field write, creating the record on the
	// tenant's first write.
	UpdateField(ctx context.Context, patch model.FieldPatch) (*model.BusinessData, error)

	// UpdateFields applies several audited field writes atomically.
	UpdateFields(ctx context.Context, patches []model.FieldPatch) (*model.BusinessData, error)
}
