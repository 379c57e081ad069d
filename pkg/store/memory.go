package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Memory keeps everything in process. Used in tests and when no
// DATABASE_URL is configured.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*SessionRecord
	prereg   []PreRegistration
	activity []activityEntry
	nowFn    func() time.Time
}

type activityEntry struct {
	SessionID string
	Type      string
	Data      json.RawMessage
	At        time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*SessionRecord),
		nowFn:    time.Now,
	}
}

func (m *Memory) CreateSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.StartTime.IsZero() {
		rec.StartTime = m.nowFn()
	}
	clone := rec
	m.sessions[rec.ID] = &clone
	return nil
}

func (m *Memory) SetFingerprint(_ context.Context, sessionID, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.Fingerprint = fingerprint
	return nil
}

func (m *Memory) SetDifficulty(_ context.Context, sessionID, difficulty string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.Difficulty = difficulty
	return nil
}

func (m *Memory) UpdateTurnCount(_ context.Context, sessionID string, turnCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.TurnCount = turnCount
	return nil
}

func (m *Memory) CompleteSession(_ context.Context, sessionID string, history, feedback json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if rec.Completed {
		return nil
	}
	now := m.nowFn()
	rec.EndTime = &now
	rec.Completed = true
	rec.History = history
	rec.Feedback = feedback
	return nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *Memory) HasEverCompleted(_ context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.sessions {
		if rec.Fingerprint == fingerprint && rec.Completed {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreatePreRegistration(_ context.Context, reg PreRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prereg = append(m.prereg, reg)
	return nil
}

func (m *Memory) LogActivity(_ context.Context, sessionID, activityType string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, activityEntry{
		SessionID: sessionID,
		Type:      activityType,
		Data:      data,
		At:        m.nowFn(),
	})
	return nil
}

func (m *Memory) Statistics(_ context.Context) (*Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Statistics{CharacterCounts: make(map[string]int)}
	for _, rec := range m.sessions {
		stats.TotalSessions++
		if rec.Completed {
			stats.CompletedSessions++
		}
		stats.CharacterCounts[rec.CharacterID]++
	}
	stats.TotalRegistrations = len(m.prereg)
	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100
	}
	return stats, nil
}

func (m *Memory) Close() {}
