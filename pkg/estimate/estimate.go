// Package estimate approximates token counts from raw content sizes.
//
// It is the fallback used by adapters whose platform does not attribute
// token usage to individual tool calls. Estimates are approximate by
// design; every consumer of an estimated count must carry the estimated
// flag through to the final output.
package estimate

import (
	"strings"
)

// CharsPerToken is the character-to-token ratio of the fallback
// heuristic. Roughly one token per four characters holds across the
// tokenizers used by the monitored platforms.
const CharsPerToken = 4

// Method identifies how an estimate was produced.
type Method string

// Estimation methods, recorded in session records for audit.
const (
	// MethodBlend uses a word/character blend, better for prose.
	MethodBlend Method = "word_char_blend"

	// MethodChars uses the plain chars/4 heuristic, used for
	// structured payloads such as serialized JSON arguments.
	MethodChars Method = "chars_per_token"
)

// Tokens estimates the token count of arbitrary text.
//
// Prose-like text (multiple whitespace-separated words) uses a blend of
// word and character counts; dense payloads without word structure fall
// back to the plain character heuristic. Returns 0 for empty input.
func Tokens(text string) int {
	if text == "" {
		return 0
	}

	words := len(strings.Fields(text))
	chars := len(text)

	if words > 1 {
		// Blend of word and char estimates.
		return (words + chars/CharsPerToken) / 2
	}

	return charTokens(chars)
}

// CharTokens estimates tokens from a raw character count using the
// plain chars/4 heuristic, rounding up so short payloads never
// estimate to zero.
func CharTokens(chars int) int {
	return charTokens(chars)
}

func charTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// ToolCall estimates the input and output token counts of a tool call
// from its serialized arguments and result text.
//
// Both sides use the character heuristic: arguments are structured JSON
// and results are frequently structured too, so the word blend would
// systematically undercount them.
func ToolCall(args, result string) (inputTokens, outputTokens int) {
	return charTokens(len(args)), charTokens(len(result))
}
