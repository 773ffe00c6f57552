// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonFenceRegex extracts a JSON object if the response is wrapped in markdown.
	jsonFenceRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

	// balancedObjectRegex finds the first balanced {...} substring, tolerating
	// one level of nested braces. This is the last-resort extraction path for
	// models that bury their JSON inside conversational text.
	balancedObjectRegex = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// ParseJSONResponse attempts to parse an LLM response string into a target Go
// type. It accepts a strictly well-formed payload, a payload wrapped in a
// markdown code fence, or, failing both, the first balanced object substring
// found anywhere in the text.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	candidate := response

	if strings.HasPrefix(response, "```") {
		if matches := jsonFenceRegex.FindStringSubmatch(response); len(matches) > 1 {
			candidate = matches[1]
		}
	}

	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err == nil {
		return &result, nil
	}

	extracted := balancedObjectRegex.FindString(response)
	if extracted == "" {
		return nil, fmt.Errorf("no JSON object found in LLM response (truncated): %s", truncateString(response, 200))
	}
	if err := json.Unmarshal([]byte(extracted), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extracted LLM JSON: %w. Extracted (truncated): %s", err, truncateString(extracted, 500))
	}
	return &result, nil
}

// truncateString truncates a string to a maximum length for error messages.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for error logging.
	return s[:maxLen] + "..."
}
