package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

func TestMessageCost(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		usage   model.TokenUsage
		want    float64
	}{
		{
			name:    "sonnet standard usage",
			modelID: "claude-3-5-sonnet-20241022",
			usage:   model.TokenUsage{Input: 1000, Output: 500},
			want:    0.0105,
		},
		{
			name:    "gpt-4o standard usage",
			modelID: "gpt-4o",
			usage:   model.TokenUsage{Input: 1000, Output: 500},
			want:    0.0075,
		},
		{
			name:    "unknown model prices at zero",
			modelID: "some-future-model",
			usage:   model.TokenUsage{Input: 1000, Output: 500},
			want:    0.0,
		},
		{
			name:    "zero usage",
			modelID: "gpt-4o",
			usage:   model.TokenUsage{},
			want:    0.0,
		},
		{
			name:    "rounds to six decimals",
			modelID: "gpt-4o-mini",
			usage:   model.TokenUsage{Input: 13, Output: 7},
			want:    0.000006,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageCost(tt.modelID, tt.usage))
		})
	}
}

func TestMessageCostIdempotent(t *testing.T) {
	usage := model.TokenUsage{Input: 1000, Output: 500}
	first := MessageCost("claude-3-5-sonnet-20241022", usage)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MessageCost("claude-3-5-sonnet-20241022", usage))
	}
}

func TestNormalizeUsage(t *testing.T) {
	tests := []struct {
		name                       string
		input, output, legacyTotal int
		want                       model.TokenUsage
	}{
		{
			name:  "structured split wins",
			input: 700, output: 300, legacyTotal: 9999,
			want: model.TokenUsage{Input: 700, Output: 300},
		},
		{
			name:        "legacy total splits 60/40",
			legacyTotal: 1000,
			want:        model.TokenUsage{Input: 600, Output: 400},
		},
		{
			name:        "odd legacy total rounds input",
			legacyTotal: 101,
			want:        model.TokenUsage{Input: 61, Output: 40},
		},
		{
			name: "nothing reported",
			want: model.TokenUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeUsage(tt.input, tt.output, tt.legacyTotal)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Input+tt.want.Output, got.Total())
		})
	}
}
