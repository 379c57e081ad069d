// Package llm abstracts the language model behind the conversation: replies,
// reply suggestions, per-sentence evaluation, and the end-of-session
// assessment. Two providers exist, an OpenAI-compatible HTTP client
// (OpenRouter) and Gemini.
package llm

import (
	"context"

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior exchange in the conversation, oldest first.
type Message struct {
	Role    string
	Content string
}

// Issue is one flagged problem within a learner sentence.
type Issue struct {
	HasIssue    bool   `json:"has_issue"`
	Corrected   string `json:"corrected,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// FeedbackItem is the evaluation of a single learner sentence. A sentence
// with neither issue set is not stored at all.
type FeedbackItem struct {
	UserSentence     string `json:"user_sentence"`
	GrammarIssue     Issue  `json:"grammar_issue"`
	NaturalnessIssue Issue  `json:"naturalness_issue"`
}

type Scores struct {
	Grammar int `json:"grammar"`
	Fluency int `json:"fluency"`
}

// Assessment is the whole-session writeup generated near the end of a
// conversation.
type Assessment struct {
	Strengths        string `json:"strengths"`
	MainWeaknesses   string `json:"main_weaknesses"`
	ActionableAdvice string `json:"actionable_advice"`
	Encouragement    string `json:"encouragement"`
	Scores           Scores `json:"scores"`
}

// Provider is the model behind a conversation. Respond failures abort the
// turn; the other three are enrichment and callers substitute fallbacks on
// error.
type Provider interface {
	Respond(ctx context.Context, userText, systemPrompt string, history []Message) (string, error)
	Suggest(ctx context.Context, history []Message, personaName string, difficulty lesson.Difficulty) ([]string, error)
	Evaluate(ctx context.Context, sentence string) (*FeedbackItem, error)
	Assess(ctx context.Context, items []FeedbackItem) (*Assessment, error)
}

// DefaultAssessment stands in when assessment generation fails. Scores are
// derived mechanically from the issue counts.
func DefaultAssessment(items []FeedbackItem) *Assessment {
	grammar, naturalness := 0, 0
	for _, it := range items {
		if it.GrammarIssue.HasIssue {
			grammar++
		}
		if it.NaturalnessIssue.HasIssue {
			naturalness++
		}
	}
	return &Assessment{
		Strengths:        "대화를 완료하셨습니다!",
		MainWeaknesses:   "계속 연습하면 더 나아질 거예요.",
		ActionableAdvice: "꾸준히 연습하세요.",
		Encouragement:    "훌륭하게 해내셨어요! 계속 연습하세요!",
		Scores: Scores{
			Grammar: clampScore(100 - grammar*10),
			Fluency: clampScore(100 - naturalness*10),
		},
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
