package model

import (
	"time"
)

// SessionStatus is the lifecycle state of a coaching session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// SessionOutcomes is the structured result extracted from a finished
// conversation. Produced at most once. Confidence is recorded even when it is
// below the auto-apply threshold so the extraction stays auditable.
type SessionOutcomes struct {
	Success       bool              `json:"success"`
	Confidence    float64           `json:"confidence"`
	ExtractedData map[string]string `json:"extracted_data,omitempty"`
}

// SessionMirror is the slice of conversation state mirrored onto the session
// record (and into the cache) for fast reads. Advisory only; the conversation
// store remains the source of truth.
type SessionMirror struct {
	ConversationID string `json:"conversation_id"`
	Phase          Phase  `json:"phase"`
	ResponseCount  int    `json:"response_count"`
	Language       string `json:"language"`
}

// CoachingSession is the per-conversation ledger: quota accounting, token and
// cost totals, and the extracted outcomes. Exactly one session per conversation.
type CoachingSession struct {
	SessionID       string           `json:"session_id"`
	TenantID        string           `json:"tenant_id"`
	UserID          string           `json:"user_id"`
	Topic           Topic            `json:"topic"`
	Status          SessionStatus    `json:"status"`
	SessionData     SessionMirror    `json:"session_data"`
	Outcomes        *SessionOutcomes `json:"outcomes,omitempty"`
	OutcomesApplied bool             `json:"outcomes_applied"`
	TotalTokens     int              `json:"total_tokens"`
	SessionCost     float64          `json:"session_cost"`
	Feedback        string           `json:"feedback,omitempty"`
	Rating          int              `json:"rating,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// Owner implements tenant.Owned.
func (s *CoachingSession) Owner() string {
	return s.TenantID
}

// SessionUpdate is the closed set of session mutations. Nil pointers leave the
// field untouched; AddTokens and AddCost accumulate onto the running totals.
type SessionUpdate struct {
	Status          *SessionStatus
	Outcomes        *SessionOutcomes
	OutcomesApplied *bool
	Mirror          *SessionMirror
	AddTokens       int
	AddCost         float64
	Feedback        *string
	Rating          *int
	CompletedAt     *time.Time
}

// SessionCreate holds the attributes for a new session; tenant and user are
// stamped from the caller's context by the store.
type SessionCreate struct {
	SessionID      string
	Topic          Topic
	ConversationID string
	Language       string
}
