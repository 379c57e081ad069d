package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres backs the store with a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) CreateSession(ctx context.Context, rec SessionRecord) error {
	if rec.StartTime.IsZero() {
		rec.StartTime = time.Now()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, character_id, start_time, user_ip, user_agent, fingerprint, difficulty)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))`,
		rec.ID, rec.CharacterID, rec.StartTime, rec.UserIP, rec.UserAgent, rec.Fingerprint, rec.Difficulty)
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

func (p *Postgres) SetFingerprint(ctx context.Context, sessionID, fingerprint string) error {
	return p.updateSession(ctx, sessionID,
		`UPDATE sessions SET fingerprint = $2 WHERE session_id = $1`, fingerprint)
}

func (p *Postgres) SetDifficulty(ctx context.Context, sessionID, difficulty string) error {
	return p.updateSession(ctx, sessionID,
		`UPDATE sessions SET difficulty = $2 WHERE session_id = $1`, difficulty)
}

func (p *Postgres) UpdateTurnCount(ctx context.Context, sessionID string, turnCount int) error {
	return p.updateSession(ctx, sessionID,
		`UPDATE sessions SET turn_count = $2 WHERE session_id = $1`, turnCount)
}

func (p *Postgres) updateSession(ctx context.Context, sessionID, query string, arg any) error {
	tag, err := p.pool.Exec(ctx, query, sessionID, arg)
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CompleteSession(ctx context.Context, sessionID string, history, feedback json.RawMessage) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE sessions
		SET end_time = now(), is_completed = TRUE, conversation_history = $2, feedback_data = $3
		WHERE session_id = $1 AND NOT is_completed`,
		sessionID, history, feedback)
	if err != nil {
		return fmt.Errorf("store: complete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already completed; only the former is an error.
		var exists bool
		if err := p.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE session_id = $1)`, sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("store: complete session: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	var endTime *time.Time
	var history, feedback []byte
	var fingerprint, difficulty, userIP, userAgent *string
	err := p.pool.QueryRow(ctx, `
		SELECT session_id, character_id, start_time, end_time, turn_count, is_completed,
		       conversation_history, feedback_data, user_ip, user_agent, fingerprint, difficulty
		FROM sessions WHERE session_id = $1`, sessionID).
		Scan(&rec.ID, &rec.CharacterID, &rec.StartTime, &endTime, &rec.TurnCount, &rec.Completed,
			&history, &feedback, &userIP, &userAgent, &fingerprint, &difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	rec.EndTime = endTime
	rec.History = history
	rec.Feedback = feedback
	if userIP != nil {
		rec.UserIP = *userIP
	}
	if userAgent != nil {
		rec.UserAgent = *userAgent
	}
	if fingerprint != nil {
		rec.Fingerprint = *fingerprint
	}
	if difficulty != nil {
		rec.Difficulty = *difficulty
	}
	return &rec, nil
}

func (p *Postgres) HasEverCompleted(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sessions WHERE fingerprint = $1 AND is_completed
		)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: check completed: %w", err)
	}
	return exists, nil
}

func (p *Postgres) CreatePreRegistration(ctx context.Context, reg PreRegistration) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO pre_registrations (session_id, name, email, phone, notify_email, notify_sms)
		VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, ''), $5, $6)`,
		reg.SessionID, reg.Name, reg.Email, reg.Phone, reg.NotifyEmail, reg.NotifySMS)
	if err != nil {
		return fmt.Errorf("store: create pre-registration: %w", err)
	}
	return nil
}

func (p *Postgres) LogActivity(ctx context.Context, sessionID, activityType string, data json.RawMessage) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO activity_logs (session_id, activity_type, activity_data)
		VALUES ($1, $2, $3)`, sessionID, activityType, data)
	if err != nil {
		return fmt.Errorf("store: log activity: %w", err)
	}
	return nil
}

func (p *Postgres) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{CharacterCounts: make(map[string]int)}
	err := p.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE is_completed),
		       (SELECT count(*) FROM pre_registrations)
		FROM sessions`).
		Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.TotalRegistrations)
	if err != nil {
		return nil, fmt.Errorf("store: statistics: %w", err)
	}
	rows, err := p.pool.Query(ctx, `SELECT character_id, count(*) FROM sessions GROUP BY character_id`)
	if err != nil {
		return nil, fmt.Errorf("store: statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("store: statistics: %w", err)
		}
		stats.CharacterCounts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: statistics: %w", err)
	}
	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100
	}
	return stats, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
