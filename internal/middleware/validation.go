package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateRating validates a session rating; zero means "not rated".
func ValidateRating(rating int) error {
	if rating < 0 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}

// ValidateLanguage validates an ISO 639-1 language code; empty selects the
// default.
func ValidateLanguage(code string) error {
	if code == "" {
		return nil
	}
	if len(code) != 2 {
		return errors.New("language must be a two-letter ISO 639-1 code")
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return errors.New("language must be a two-letter ISO 639-1 code")
		}
	}
	return nil
}

// ValidateFeedback validates session feedback text.
func ValidateFeedback(feedback string) error {
	if len(feedback) > 4096 {
		return errors.New("feedback exceeds maximum length")
	}
	if !utf8.ValidString(feedback) {
		return errors.New("feedback must be valid UTF-8")
	}
	return nil
}
