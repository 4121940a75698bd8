package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

const replyFormat = `Respond with a single JSON object and nothing else:
{"message": "<your coaching reply>", "follow_up_question": "<the next question, or empty>", "insights": ["<short insight>", ...], "is_complete": <true when the topic is fully explored and summarized>}`

// coachSystemPrompt assembles the per-turn system prompt: topic template,
// tenant business context, target language and the reply contract.
func coachSystemPrompt(spec model.TopicSpec, businessContext, language string) string {
	var b strings.Builder
	b.WriteString(spec.SystemPrompt)
	if businessContext != "" {
		b.WriteString("\n\nWhat is already known about this business:\n")
		b.WriteString(businessContext)
	}
	if language != "" && language != "en" {
		fmt.Fprintf(&b, "\n\nRespond in the language with ISO code %q.", language)
	}
	b.WriteString("\n\n")
	b.WriteString(replyFormat)
	return b.String()
}

func extractionSystemPrompt(spec model.TopicSpec) string {
	return fmt.Sprintf("You distill finished %s coaching conversations into structured business data. "+
		"Be conservative: only report a high confidence when the conversation reached a clear, "+
		"confirmed result.", spec.Topic)
}

// extractionPrompt renders the transcript plus the outcome contract.
func extractionPrompt(spec model.TopicSpec, history []model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Below is a coaching conversation about the topic %q.\n\n", spec.Topic)
	b.WriteString(transcript(history))
	fmt.Fprintf(&b, "\nExtract the final result. Respond with a single JSON object and nothing else:\n"+
		`{"success": <true if a usable result was reached>, "confidence": <0.0-1.0>, "extracted_data": {"%s": "<the distilled value>"}}`,
		spec.BusinessField)
	return b.String()
}

func transcript(history []model.Message) string {
	var b strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

func historyToChat(history []model.Message) []chatMessage {
	out := make([]chatMessage, len(history))
	for i, msg := range history {
		out[i] = chatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	return out
}

type replyPayload struct {
	Message          string   `json:"message"`
	FollowUpQuestion string   `json:"follow_up_question"`
	Insights         []string `json:"insights"`
	IsComplete       bool     `json:"is_complete"`
}

// parseReplyPayload decodes a structured coach reply. Models occasionally wrap
// the JSON in prose or fences, so the first balanced object is extracted; when
// no JSON is found the raw text is kept as the message.
func parseReplyPayload(raw string) replyPayload {
	if doc, ok := extractJSONObject(raw); ok {
		var p replyPayload
		if err := json.Unmarshal([]byte(doc), &p); err == nil && p.Message != "" {
			return p
		}
	}
	return replyPayload{Message: strings.TrimSpace(raw)}
}

type outcomesPayload struct {
	Success       bool              `json:"success"`
	Confidence    float64           `json:"confidence"`
	ExtractedData map[string]string `json:"extracted_data"`
}

// parseOutcomes decodes an extraction result. Unlike replies there is no text
// fallback: malformed output is an extraction failure.
func parseOutcomes(raw string) (*model.SessionOutcomes, error) {
	doc, ok := extractJSONObject(raw)
	if !ok {
		return nil, errors.New("no JSON object in extraction output")
	}

	var p outcomesPayload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("malformed extraction output: %w", err)
	}

	confidence := p.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return &model.SessionOutcomes{
		Success:       p.Success,
		Confidence:    confidence,
		ExtractedData: p.ExtractedData,
	}, nil
}

// extractJSONObject returns the first balanced top-level {...} in s. Brace
// counting ignores braces inside JSON strings.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
