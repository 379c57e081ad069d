package session

import (
	"encoding/json"
	"testing"

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
)

func TestTurnAccounting(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")

	if s.TurnCount() != 0 {
		t.Fatalf("fresh session turn count = %d", s.TurnCount())
	}
	s.RecordAgentUtterance("Hi there!")
	if s.TurnCount() != 0 {
		t.Fatalf("agent utterances must not count as turns")
	}
	if got := s.RecordUserUtterance("Hello!"); got != 1 {
		t.Fatalf("first user turn = %d", got)
	}
	if got := s.RecordUserUtterance("How are you?"); got != 2 {
		t.Fatalf("second user turn = %d", got)
	}

	users := 0
	for _, u := range s.HistorySnapshot() {
		if u.Speaker == SpeakerUser {
			users++
		}
	}
	if users != s.TurnCount() {
		t.Fatalf("turn count %d != user utterances %d", s.TurnCount(), users)
	}
}

func TestHistoryMessagesOrderAndRoles(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")
	s.RecordAgentUtterance("greeting")
	s.RecordUserUtterance("first")
	s.RecordAgentUtterance("reply")

	msgs := s.HistoryMessages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleAssistant || msgs[1].Role != llm.RoleUser || msgs[2].Role != llm.RoleAssistant {
		t.Fatalf("roles = %v", msgs)
	}
	if msgs[1].Content != "first" {
		t.Fatalf("order broken: %v", msgs)
	}
}

func TestDifficultySetOnce(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")

	if s.Difficulty() != lesson.DefaultDifficulty {
		t.Fatalf("default difficulty = %q", s.Difficulty())
	}
	if !s.SetDifficulty(lesson.DifficultyBeginner) {
		t.Fatalf("first set must apply")
	}
	if s.SetDifficulty(lesson.DifficultyAdvanced) {
		t.Fatalf("second set must be ignored")
	}
	if s.Difficulty() != lesson.DifficultyBeginner {
		t.Fatalf("difficulty = %q", s.Difficulty())
	}
}

func TestCompleteIdempotent(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")

	if s.Completed() {
		t.Fatalf("fresh session completed")
	}
	if !s.Complete() {
		t.Fatalf("first Complete must report true")
	}
	ended := s.EndedAt()
	if ended.IsZero() {
		t.Fatalf("endedAt not set")
	}
	if s.Complete() {
		t.Fatalf("second Complete must be a no-op")
	}
	if !s.EndedAt().Equal(ended) {
		t.Fatalf("endedAt changed on repeat completion")
	}
}

func TestAssessmentSetOnce(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")

	first := &llm.Assessment{Strengths: "a"}
	if !s.SetOverallAssessment(first) {
		t.Fatalf("first set must apply")
	}
	if s.SetOverallAssessment(&llm.Assessment{Strengths: "b"}) {
		t.Fatalf("second set must be ignored")
	}
	if s.OverallAssessment() != first {
		t.Fatalf("assessment replaced")
	}
}

func TestMarshalFeedbackShape(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")
	s.AddFeedback(llm.FeedbackItem{UserSentence: "I want go school"})
	s.SetOverallAssessment(&llm.Assessment{Encouragement: "keep going"})

	var decoded struct {
		FeedbackItems     []llm.FeedbackItem `json:"feedback_items"`
		OverallAssessment *llm.Assessment    `json:"overall_assessment"`
	}
	if err := json.Unmarshal(s.MarshalFeedback(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.FeedbackItems) != 1 || decoded.FeedbackItems[0].UserSentence != "I want go school" {
		t.Fatalf("feedback items = %+v", decoded.FeedbackItems)
	}
	if decoded.OverallAssessment == nil || decoded.OverallAssessment.Encouragement != "keep going" {
		t.Fatalf("assessment = %+v", decoded.OverallAssessment)
	}
}

func TestMarshalFeedbackEmpty(t *testing.T) {
	t.Parallel()
	s := NewConversation("s1", "jihoon")

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(s.MarshalFeedback(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded["feedback_items"]) != "[]" {
		t.Fatalf("feedback_items = %s, want empty array", decoded["feedback_items"])
	}
}
