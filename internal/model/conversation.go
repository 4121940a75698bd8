// Package model defines data structures for the coaching engine.
package model

import (
	"time"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

var statusTransitions = map[Status][]Status{
	StatusActive: {StatusPaused, StatusCompleted, StatusAbandoned},
	StatusPaused: {StatusActive, StatusCompleted, StatusAbandoned},
}

// CanTransition reports whether the status machine allows s → next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Phase is the coaching progression axis, independent of Status and
// monotonically non-decreasing within a conversation.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseExploration  Phase = "exploration"
	PhaseDeepening    Phase = "deepening"
	PhaseCompletion   Phase = "completion"
)

var phaseWeights = map[Phase]float64{
	PhaseIntroduction: 0.1,
	PhaseExploration:  0.3,
	PhaseDeepening:    0.6,
	PhaseCompletion:   1.0,
}

var phaseOrder = map[Phase]int{
	PhaseIntroduction: 0,
	PhaseExploration:  1,
	PhaseDeepening:    2,
	PhaseCompletion:   3,
}

// Progress returns the weight of the phase. A pure lookup: a conversation in
// exploration reports 0.3 regardless of message count.
func (p Phase) Progress() float64 {
	return phaseWeights[p]
}

// PhaseForResponseCount returns the phase the coaching rules prescribe after n
// user responses. Completion is never reached by count alone; it requires the
// coach reply to signal completion.
func PhaseForResponseCount(n int) Phase {
	switch {
	case n >= 5:
		return PhaseDeepening
	case n >= 2:
		return PhaseExploration
	default:
		return PhaseIntroduction
	}
}

// ConversationContext carries the coaching state mutated on each user message.
type ConversationContext struct {
	Phase            Phase             `json:"phase"`
	IdentifiedValues []string          `json:"identified_values,omitempty"`
	KeyInsights      []string          `json:"key_insights,omitempty"`
	ResponseCount    int               `json:"response_count"`
	TenantID         string            `json:"tenant_id"`
	SessionID        string            `json:"session_id"`
	BusinessContext  map[string]string `json:"business_context,omitempty"`
	Language         string            `json:"language"`
}

// AdvanceTo moves the phase forward. Regressions are ignored, keeping phase
// progress monotonic by construction.
func (c *ConversationContext) AdvanceTo(p Phase) {
	if phaseOrder[p] > phaseOrder[c.Phase] {
		c.Phase = p
	}
}

// Conversation is a multi-turn coaching conversation. It owns its messages and
// context exclusively; messages are append-only.
type Conversation struct {
	ID          string              `json:"id"`
	TenantID    string              `json:"tenant_id"`
	UserID      string              `json:"user_id"`
	Topic       Topic               `json:"topic"`
	Status      Status              `json:"status"`
	Messages    []Message           `json:"messages"`
	Context     ConversationContext `json:"context"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	ExpiresAt   time.Time           `json:"expires_at,omitempty"`
}

// Owner implements tenant.Owned.
func (c *Conversation) Owner() string {
	return c.TenantID
}

// Progress returns the conversation's phase weight.
func (c *Conversation) Progress() float64 {
	return c.Context.Phase.Progress()
}
