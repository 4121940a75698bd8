package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

func TestParseReplyPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want replyPayload
	}{
		{
			name: "clean json",
			raw:  `{"message":"Good answer.","follow_up_question":"Why?","insights":["cares about craft"],"is_complete":false}`,
			want: replyPayload{Message: "Good answer.", FollowUpQuestion: "Why?", Insights: []string{"cares about craft"}},
		},
		{
			name: "json wrapped in prose and fences",
			raw:  "Here you go:\n```json\n{\"message\":\"Done.\",\"is_complete\":true}\n```",
			want: replyPayload{Message: "Done.", IsComplete: true},
		},
		{
			name: "braces inside strings do not break extraction",
			raw:  `{"message":"Use {curly} thinking.","is_complete":false}`,
			want: replyPayload{Message: "Use {curly} thinking."},
		},
		{
			name: "plain text falls back to raw message",
			raw:  "  That's a great start, tell me more.  ",
			want: replyPayload{Message: "That's a great start, tell me more."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseReplyPayload(tt.raw))
		})
	}
}

func TestParseOutcomes(t *testing.T) {
	out, err := parseOutcomes(`{"success":true,"confidence":0.87,"extracted_data":{"purpose":"Keep bakers independent"}}`)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 0.87, out.Confidence)
	assert.Equal(t, "Keep bakers independent", out.ExtractedData["purpose"])
}

func TestParseOutcomesClampsConfidence(t *testing.T) {
	out, err := parseOutcomes(`{"success":true,"confidence":1.7}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Confidence)

	out, err = parseOutcomes(`{"success":false,"confidence":-0.2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Confidence)
}

func TestParseOutcomesRejectsMalformed(t *testing.T) {
	_, err := parseOutcomes("the conversation went well")
	assert.Error(t, err)

	_, err = parseOutcomes(`{"success":`)
	assert.Error(t, err)
}

func TestCoachSystemPrompt(t *testing.T) {
	spec, _ := model.LookupTopic(model.TopicVision)

	p := coachSystemPrompt(spec, "purpose: Keep bakers independent", "de")
	assert.Contains(t, p, spec.SystemPrompt)
	assert.Contains(t, p, "Keep bakers independent")
	assert.Contains(t, p, `"de"`)
	assert.Contains(t, p, "is_complete")

	// English adds no language instruction.
	p = coachSystemPrompt(spec, "", "en")
	assert.NotContains(t, p, "ISO code")
}

func TestExtractionPromptNamesBusinessField(t *testing.T) {
	spec, _ := model.LookupTopic(model.TopicCoreValues)
	history := []model.Message{
		{Role: model.RoleAssistant, Content: "What made it feel right?"},
		{Role: model.RoleUser, Content: "We refused a big order that clashed with our standards."},
	}

	p := extractionPrompt(spec, history)
	assert.Contains(t, p, string(model.FieldCoreValues))
	assert.Contains(t, p, "refused a big order")
	assert.Contains(t, p, "confidence")
}
