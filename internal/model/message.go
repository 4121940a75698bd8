package model

import (
	"time"
)

// Role represents the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TokenUsage is the canonical input/output token split. Legacy single-total
// counts are normalized into this shape before entering the cost ledger.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Total returns the combined token count.
func (u TokenUsage) Total() int {
	return u.Input + u.Output
}

// Message is one turn of a conversation. Immutable once appended.
type Message struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// Set on assistant turns only.
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	Cost       *float64    `json:"cost,omitempty"`
	ModelID    *string     `json:"model_id,omitempty"`
}
