// Package cost computes token cost for assistant messages and normalizes the
// token-usage shapes accepted at ingestion.
package cost

import (
	"math"

	"github.com/purposepath-ai/coaching-engine/internal/model"
)

// rate is USD per 1000 tokens.
type rate struct {
	input  float64
	output float64
}

// Static per-model rate table. Unknown models price at zero rather than
// failing, so a new model id never blocks message processing.
var modelRates = map[string]rate{
	"claude-3-5-sonnet-20241022": {input: 0.003, output: 0.015},
	"claude-3-5-haiku-20241022":  {input: 0.0008, output: 0.004},
	"claude-3-opus-20240229":     {input: 0.015, output: 0.075},
	"claude-3-haiku-20240307":    {input: 0.00025, output: 0.00125},
	"gpt-4o":                     {input: 0.0025, output: 0.01},
	"gpt-4o-mini":                {input: 0.00015, output: 0.0006},
	"gpt-4-turbo":                {input: 0.01, output: 0.03},
	"gpt-3.5-turbo":              {input: 0.0005, output: 0.0015},
}

// legacyInputShare is the assumed input fraction when only a single total
// token count is available. Placeholder policy pending product confirmation.
const legacyInputShare = 0.6

// NormalizeUsage converts any accepted token-usage shape into the canonical
// input/output split. A structured split wins; a legacy single total is split
// 60/40 input/output.
func NormalizeUsage(input, output, legacyTotal int) model.TokenUsage {
	if input > 0 || output > 0 {
		return model.TokenUsage{Input: input, Output: output}
	}
	if legacyTotal <= 0 {
		return model.TokenUsage{}
	}
	in := int(math.Round(float64(legacyTotal) * legacyInputShare))
	return model.TokenUsage{Input: in, Output: legacyTotal - in}
}

// MessageCost prices one message: tokens/1000 * rate per direction, rounded to
// 6 decimal places. Deterministic for a given model and usage.
func MessageCost(modelID string, usage model.TokenUsage) float64 {
	r, ok := modelRates[modelID]
	if !ok {
		return 0.0
	}
	raw := float64(usage.Input)/1000*r.input + float64(usage.Output)/1000*r.output
	return math.Round(raw*1e6) / 1e6
}
