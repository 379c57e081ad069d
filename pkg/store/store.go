// Package store persists conversation sessions, pre-registrations, and
// activity logs. Two implementations exist: Postgres for deployments and an
// in-memory store for tests and database-less development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// SessionRecord mirrors one row of the sessions table.
type SessionRecord struct {
	ID          string
	CharacterID string
	StartTime   time.Time
	EndTime     *time.Time
	TurnCount   int
	Completed   bool
	History     json.RawMessage
	Feedback    json.RawMessage
	UserIP      string
	UserAgent   string
	Fingerprint string
	Difficulty  string
}

// PreRegistration is a contact capture submitted after a completed session.
type PreRegistration struct {
	SessionID   string
	Name        string
	Email       string
	Phone       string
	NotifyEmail bool
	NotifySMS   bool
}

// Statistics aggregates usage counters for the operator endpoint.
type Statistics struct {
	TotalSessions      int            `json:"total_sessions"`
	CompletedSessions  int            `json:"completed_sessions"`
	CompletionRate     float64        `json:"completion_rate"`
	TotalRegistrations int            `json:"total_registrations"`
	CharacterCounts    map[string]int `json:"character_stats"`
}

// Store is the persistence boundary. Completion is one-way: CompleteSession
// on an already completed session must not overwrite the stored history.
type Store interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	SetFingerprint(ctx context.Context, sessionID, fingerprint string) error
	SetDifficulty(ctx context.Context, sessionID, difficulty string) error
	UpdateTurnCount(ctx context.Context, sessionID string, turnCount int) error
	CompleteSession(ctx context.Context, sessionID string, history, feedback json.RawMessage) error
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	HasEverCompleted(ctx context.Context, fingerprint string) (bool, error)
	CreatePreRegistration(ctx context.Context, reg PreRegistration) error
	LogActivity(ctx context.Context, sessionID, activityType string, data json.RawMessage) error
	Statistics(ctx context.Context) (*Statistics, error)
	Close()
}
