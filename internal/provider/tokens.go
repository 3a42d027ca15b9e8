package provider

import (
	"math"
	"strings"

	"aitexgen/internal/models"
)

const (
	// tokensPerWord approximates subword tokenization of English prose.
	tokensPerWord = 1.3
	// systemPromptTokens is a flat allowance covering the instruction
	// preamble sent with every call.
	systemPromptTokens = 600
)

// EstimateTokens predicts the token cost of a call before it is made: a
// words-to-tokens ratio over the user text plus flat allowances for the
// system prompt and the maximum response length. Estimates err on the high
// side.
func EstimateTokens(userText string) int {
	words := len(strings.Fields(userText))
	estimated := int(math.Ceil(float64(words) * tokensPerWord))
	return estimated + systemPromptTokens + models.MaxCompletionTokens
}
