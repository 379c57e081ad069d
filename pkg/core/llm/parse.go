package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes a markdown code fence around model output, tolerating
// an optional "json" language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// extractJSONArray pulls the first [...] span out of text that may carry
// prose around the payload.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

var suggestionPadding = []string{"Tell me more", "That's interesting", "What about you?"}

// parseSuggestions decodes a suggestion reply, padding short lists so the
// caller always gets exactly three entries.
func parseSuggestions(raw string) ([]string, error) {
	text := extractJSONArray(stripFences(raw))
	var suggestions []string
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	for i := 0; len(suggestions) < 3 && i < len(suggestionPadding); i++ {
		suggestions = append(suggestions, suggestionPadding[i])
	}
	return suggestions[:3], nil
}

// parseEvaluation decodes a sentence evaluation. A clean sentence
// (has_issues false) yields nil without error.
func parseEvaluation(raw string) (*FeedbackItem, error) {
	text := extractJSONObject(stripFences(raw))
	var payload struct {
		HasIssues bool `json:"has_issues"`
		FeedbackItem
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	if !payload.HasIssues {
		return nil, nil
	}
	item := payload.FeedbackItem
	return &item, nil
}

func parseAssessment(raw string) (*Assessment, error) {
	text := extractJSONObject(stripFences(raw))
	var assessment Assessment
	if err := json.Unmarshal([]byte(text), &assessment); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &assessment, nil
}
