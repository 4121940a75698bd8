// Package apperrors defines the error taxonomy shared across the coaching engine.
// Sentinels are matched with errors.Is; the handler layer maps them to stable
// API codes so client UIs can distinguish quota denials from access denials.
package apperrors

import "errors"

var (
	// ErrNotFound indicates a conversation or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied indicates a tenant or user mismatch. Deliberately distinct
	// from ErrNotFound: the record exists but is invisible to this tenant.
	ErrAccessDenied = errors.New("access denied")

	// ErrQuotaExceeded indicates the session ceiling for a topic was reached.
	ErrQuotaExceeded = errors.New("session quota exceeded")

	// ErrAlreadyCompleted indicates an operation on a terminal conversation.
	ErrAlreadyCompleted = errors.New("conversation already completed")

	// ErrConversationPaused indicates a message was sent to a paused conversation.
	ErrConversationPaused = errors.New("conversation is paused")

	// ErrInvalidTopic indicates an unknown coaching topic.
	ErrInvalidTopic = errors.New("invalid coaching topic")

	// ErrExtraction indicates LLM outcome extraction failed or returned
	// malformed data. Logged, never fatal to completion.
	ErrExtraction = errors.New("outcome extraction failed")

	// ErrStoreUnavailable indicates a transient store failure the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Code returns the stable API code for an error, or "INTERNAL" when the error
// is not part of the taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAccessDenied):
		return "ACCESS_DENIED"
	case errors.Is(err, ErrQuotaExceeded):
		return "QUOTA_EXCEEDED"
	case errors.Is(err, ErrAlreadyCompleted):
		return "ALREADY_COMPLETED"
	case errors.Is(err, ErrConversationPaused):
		return "CONVERSATION_PAUSED"
	case errors.Is(err, ErrInvalidTopic):
		return "INVALID_TOPIC"
	case errors.Is(err, ErrExtraction):
		return "EXTRACTION_FAILED"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
