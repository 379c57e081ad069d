package llm

import (
	"strings"
	"testing"
)

func TestParseSuggestions(t *testing.T) {
	t.Parallel()

	got, err := parseSuggestions(`["How was it?", "Sounds fun.", "Tell me everything!"]`)
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if len(got) != 3 || got[0] != "How was it?" {
		t.Fatalf("parseSuggestions = %v", got)
	}
}

func TestParseSuggestionsFencedAndPadded(t *testing.T) {
	t.Parallel()

	raw := "```json\n[\"Only one\"]\n```"
	got, err := parseSuggestions(raw)
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected padding to 3, got %v", got)
	}
	if got[1] != "Tell me more" || got[2] != "That's interesting" {
		t.Fatalf("unexpected padding: %v", got)
	}
}

func TestParseSuggestionsWithSurroundingProse(t *testing.T) {
	t.Parallel()

	raw := `Here you go: ["A", "B", "C"] hope that helps`
	got, err := parseSuggestions(raw)
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if got[2] != "C" {
		t.Fatalf("parseSuggestions = %v", got)
	}
}

func TestParseSuggestionsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseSuggestions("sorry, I can't do that"); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestParseEvaluationClean(t *testing.T) {
	t.Parallel()

	item, err := parseEvaluation(`{"has_issues": false, "user_sentence": "I like coffee."}`)
	if err != nil {
		t.Fatalf("parseEvaluation: %v", err)
	}
	if item != nil {
		t.Fatalf("clean sentence should yield nil, got %+v", item)
	}
}

func TestParseEvaluationFlagged(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{
	  "has_issues": true,
	  "user_sentence": "I want go school",
	  "grammar_issue": {"has_issue": true, "corrected": "I want to go to school", "explanation": "to 부정사가 빠졌어요"},
	  "naturalness_issue": {"has_issue": false}
	}` + "\n```"
	item, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("parseEvaluation: %v", err)
	}
	if item == nil {
		t.Fatalf("expected feedback item")
	}
	if !item.GrammarIssue.HasIssue || item.GrammarIssue.Corrected != "I want to go to school" {
		t.Fatalf("grammar issue mangled: %+v", item.GrammarIssue)
	}
	if item.NaturalnessIssue.HasIssue {
		t.Fatalf("naturalness should be clear: %+v", item.NaturalnessIssue)
	}
}

func TestParseAssessment(t *testing.T) {
	t.Parallel()

	raw := `{"strengths": "s", "main_weaknesses": "w", "actionable_advice": "a", "encouragement": "e", "scores": {"grammar": 85, "fluency": 70}}`
	a, err := parseAssessment(raw)
	if err != nil {
		t.Fatalf("parseAssessment: %v", err)
	}
	if a.Scores.Grammar != 85 || a.Scores.Fluency != 70 {
		t.Fatalf("scores = %+v", a.Scores)
	}
}

func TestDefaultAssessmentScores(t *testing.T) {
	t.Parallel()

	items := []FeedbackItem{
		{GrammarIssue: Issue{HasIssue: true}},
		{GrammarIssue: Issue{HasIssue: true}, NaturalnessIssue: Issue{HasIssue: true}},
	}
	a := DefaultAssessment(items)
	if a.Scores.Grammar != 80 || a.Scores.Fluency != 90 {
		t.Fatalf("scores = %+v", a.Scores)
	}
	if a.Encouragement == "" {
		t.Fatalf("missing encouragement")
	}
}

func TestSuggestPromptWindowsHistory(t *testing.T) {
	t.Parallel()

	var history []Message
	for i := 0; i < 10; i++ {
		history = append(history, Message{Role: RoleUser, Content: "msg" + string(rune('0'+i))})
	}
	p := suggestPrompt(history, "Jihoon", "intermediate")
	if strings.Contains(p, "msg0") || strings.Contains(p, "msg3") {
		t.Fatalf("prompt includes history beyond the window:\n%s", p)
	}
	if !strings.Contains(p, "msg9") {
		t.Fatalf("prompt missing most recent message:\n%s", p)
	}
}
