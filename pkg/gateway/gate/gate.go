// Package gate serializes access to rate-limited remote speech APIs. Each
// capability (speech-to-text, text-to-speech) gets its own Gate with a fixed
// number of admission slots; admitted calls are retried with exponential
// backoff when the failure is transient.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaminitachi/aivoice-learning/pkg/gateway/metrics"
)

// Transienter marks errors worth retrying. Speech clients implement it on
// their 429/503 and transport errors.
type Transienter interface {
	Transient() bool
}

// IsTransient walks the error chain for a transience marker.
func IsTransient(err error) bool {
	for err != nil {
		if t, ok := err.(Transienter); ok {
			return t.Transient()
		}
		err = errors.Unwrap(err)
	}
	return false
}

type permanentError struct{ err error }

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Transient() bool { return false }

// Permanent wraps err so the gate never retries it, regardless of any
// transience marker further down the chain. Used after side effects that
// make a retry unsafe, like audio already forwarded to the client.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type transientError struct{ err error }

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

// Transient wraps err so the gate retries it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// ExhaustedError reports that every retry attempt failed.
type ExhaustedError struct {
	Capability string
	Attempts   int
	Last       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gate: %s failed after %d attempts: %v", e.Capability, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Transient reports false: once the budget is spent the failure is final.
func (e *ExhaustedError) Transient() bool { return false }

// Config tunes one Gate.
type Config struct {
	// Capability names the guarded remote API, used for logs and metrics.
	Capability string
	// MaxConcurrent is the admission slot count.
	MaxConcurrent int
	// MaxAttempts bounds tries per call, first attempt included.
	MaxAttempts int
	// InitialDelay seeds the exponential backoff between attempts.
	InitialDelay time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Gate admits at most MaxConcurrent calls at a time and retries transient
// failures with exponential backoff.
type Gate struct {
	capability   string
	slots        chan struct{}
	maxAttempts  int
	initialDelay time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	sleep        func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) (*Gate, error) {
	if cfg.Capability == "" {
		return nil, fmt.Errorf("gate: capability required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gate{
		capability:   cfg.Capability,
		slots:        make(chan struct{}, cfg.MaxConcurrent),
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		logger:       cfg.Logger.With("capability", cfg.Capability),
		metrics:      cfg.Metrics,
		sleep:        sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op under an admission slot, retrying transient failures. The slot
// is held for the whole call including retries and released exactly once.
func (g *Gate) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if g.metrics != nil {
		g.metrics.GateAttempts.WithLabelValues(g.capability).Inc()
	}

	waitStart := time.Now()
	select {
	case g.slots <- struct{}{}:
	default:
		// Saturated; record the queue crossing and wait.
		if g.metrics != nil {
			g.metrics.GateQueued.WithLabelValues(g.capability).Inc()
		}
		g.logger.Info("gate saturated, queueing")
		select {
		case g.slots <- struct{}{}:
		case <-ctx.Done():
			if g.metrics != nil {
				g.metrics.GateFailed.WithLabelValues(g.capability).Inc()
			}
			return fmt.Errorf("gate: %s admission: %w", g.capability, ctx.Err())
		}
	}
	if g.metrics != nil {
		g.metrics.GateWait.WithLabelValues(g.capability).Observe(time.Since(waitStart).Seconds())
	}
	defer func() { <-g.slots }()

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		err := op(ctx)
		if err == nil {
			if g.metrics != nil {
				g.metrics.GateSucceeded.WithLabelValues(g.capability).Inc()
			}
			return nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == g.maxAttempts {
			break
		}
		delay := g.initialDelay << (attempt - 1)
		g.logger.Warn("transient failure, retrying",
			"attempt", attempt, "max_attempts", g.maxAttempts, "delay", delay, "error", err)
		if g.metrics != nil {
			g.metrics.GateRetries.WithLabelValues(g.capability).Inc()
		}
		if err := g.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if g.metrics != nil {
		g.metrics.GateFailed.WithLabelValues(g.capability).Inc()
	}
	if IsTransient(lastErr) {
		return &ExhaustedError{Capability: g.capability, Attempts: g.maxAttempts, Last: lastErr}
	}
	return lastErr
}
