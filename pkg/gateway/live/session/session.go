// Package session owns the state and turn pipeline for one live
// conversation connection.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
)

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Utterance is one history entry. Insertion order is conversation order and
// is fed back to the language model verbatim.
type Utterance struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSession tracks one connection's turn history, feedback, and
// completion status. The pipeline owning the connection is the only writer;
// the mutex exists because background enrichment goroutines append feedback
// while the next turn is already in flight.
type ConversationSession struct {
	id          string
	characterID string

	mu            sync.Mutex
	turnCount     int
	history       []Utterance
	difficulty    lesson.Difficulty
	difficultySet bool
	feedback      []llm.FeedbackItem
	assessment    *llm.Assessment
	completed     bool
	startedAt     time.Time
	endedAt       time.Time

	now func() time.Time
}

func NewConversation(id, characterID string) *ConversationSession {
	s := &ConversationSession{
		id:          id,
		characterID: characterID,
		difficulty:  lesson.DefaultDifficulty,
		now:         time.Now,
	}
	s.startedAt = s.now()
	return s
}

func (s *ConversationSession) ID() string          { return s.id }
func (s *ConversationSession) CharacterID() string { return s.characterID }

func (s *ConversationSession) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

func (s *ConversationSession) Difficulty() lesson.Difficulty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.difficulty
}

// SetDifficulty applies once; later calls are ignored and report false.
func (s *ConversationSession) SetDifficulty(d lesson.Difficulty) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.difficultySet {
		return false
	}
	s.difficulty = d
	s.difficultySet = true
	return true
}

// RecordUserUtterance appends to history and returns the new turn count.
func (s *ConversationSession) RecordUserUtterance(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Utterance{Speaker: SpeakerUser, Text: text, Timestamp: s.now()})
	s.turnCount++
	return s.turnCount
}

func (s *ConversationSession) RecordAgentUtterance(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Utterance{Speaker: SpeakerAgent, Text: text, Timestamp: s.now()})
}

func (s *ConversationSession) HistorySnapshot() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Utterance, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryMessages converts history to the language-model message form.
func (s *ConversationSession) HistoryMessages() []llm.Message {
	snapshot := s.HistorySnapshot()
	out := make([]llm.Message, 0, len(snapshot))
	for _, u := range snapshot {
		role := llm.RoleAssistant
		if u.Speaker == SpeakerUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: u.Text})
	}
	return out
}

func (s *ConversationSession) AddFeedback(item llm.FeedbackItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, item)
}

func (s *ConversationSession) FeedbackSnapshot() []llm.FeedbackItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.FeedbackItem, len(s.feedback))
	copy(out, s.feedback)
	return out
}

// SetOverallAssessment applies once; later calls are ignored.
func (s *ConversationSession) SetOverallAssessment(a *llm.Assessment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assessment != nil {
		return false
	}
	s.assessment = a
	return true
}

func (s *ConversationSession) OverallAssessment() *llm.Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assessment
}

// Complete flips the session to completed. Idempotent; reports whether this
// call was the one that completed it.
func (s *ConversationSession) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return false
	}
	s.completed = true
	s.endedAt = s.now()
	return true
}

func (s *ConversationSession) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *ConversationSession) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *ConversationSession) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}

// MarshalHistory renders history for persistence.
func (s *ConversationSession) MarshalHistory() json.RawMessage {
	data, err := json.Marshal(s.HistorySnapshot())
	if err != nil {
		return nil
	}
	return data
}

type feedbackPayload struct {
	FeedbackItems     []llm.FeedbackItem `json:"feedback_items"`
	OverallAssessment *llm.Assessment    `json:"overall_assessment,omitempty"`
}

// MarshalFeedback renders collected feedback plus the overall assessment
// for persistence.
func (s *ConversationSession) MarshalFeedback() json.RawMessage {
	payload := feedbackPayload{
		FeedbackItems:     s.FeedbackSnapshot(),
		OverallAssessment: s.OverallAssessment(),
	}
	if payload.FeedbackItems == nil {
		payload.FeedbackItems = []llm.FeedbackItem{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
