// Package sessions tracks live conversation sessions by connection key and
// guarantees durable cleanup when connections go away.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/session"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/metrics"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

type entry struct {
	sess   *session.ConversationSession
	retire sync.Once
}

// Registry owns the live session set. One session per connection key.
type Registry struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	active map[string]*entry
	wg     sync.WaitGroup
}

func NewRegistry(st store.Store, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   st,
		logger:  logger,
		metrics: m,
		active:  make(map[string]*entry),
	}
}

// Create registers a new conversation for a connection and writes the
// durable session row. A second session on the same connection key is a
// programming error.
func (r *Registry) Create(ctx context.Context, characterID, connKey, netID, userAgent string) (*session.ConversationSession, error) {
	sess := session.NewConversation(uuid.NewString(), characterID)

	r.mu.Lock()
	if _, exists := r.active[connKey]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("sessions: connection %q already has a session", connKey)
	}
	r.active[connKey] = &entry{sess: sess}
	r.wg.Add(1)
	r.mu.Unlock()

	if err := r.store.CreateSession(ctx, store.SessionRecord{
		ID:          sess.ID(),
		CharacterID: characterID,
		StartTime:   sess.StartedAt(),
		UserIP:      netID,
		UserAgent:   userAgent,
	}); err != nil {
		// The conversation can still run; only durability suffers.
		r.logger.Warn("persist new session failed", "session_id", sess.ID(), "error", err)
	}
	if err := r.store.LogActivity(ctx, sess.ID(), "start", nil); err != nil {
		r.logger.Warn("log start activity failed", "session_id", sess.ID(), "error", err)
	}
	if r.metrics != nil {
		r.metrics.SessionsTotal.Inc()
		r.metrics.SessionsActive.Inc()
	}
	r.logger.Info("session created", "session_id", sess.ID(), "character_id", characterID, "net_id", netID)
	return sess, nil
}

func (r *Registry) Get(connKey string) (*session.ConversationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[connKey]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// Retire removes the connection's session. A session that never completed
// is completed and persisted here so a dropped connection cannot leave a
// permanently in-progress durable row. Safe to call more than once.
func (r *Registry) Retire(ctx context.Context, connKey string) {
	r.mu.Lock()
	e, ok := r.active[connKey]
	if ok {
		delete(r.active, connKey)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	e.retire.Do(func() {
		defer r.wg.Done()
		if r.metrics != nil {
			r.metrics.SessionsActive.Dec()
		}
		sess := e.sess
		if sess.Complete() {
			if err := r.store.CompleteSession(ctx, sess.ID(), sess.MarshalHistory(), sess.MarshalFeedback()); err != nil {
				r.logger.Warn("persist retired session failed", "session_id", sess.ID(), "error", err)
			}
			r.logger.Info("session retired incomplete", "session_id", sess.ID(), "turns", sess.TurnCount())
		}
	})
}

// Wait blocks until every live session has retired or ctx expires.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
