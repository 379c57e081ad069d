// Package access decides whether a visitor may start a conversation. The
// policy is one completed conversation per browser fingerprint, forever.
package access

import (
	"context"
	"log/slog"
)

// CompletionChecker is the slice of the store the guard needs.
type CompletionChecker interface {
	HasEverCompleted(ctx context.Context, fingerprint string) (bool, error)
}

// Guard applies the one-conversation policy.
type Guard struct {
	store  CompletionChecker
	logger *slog.Logger
}

func NewGuard(store CompletionChecker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, logger: logger}
}

// MayProceed reports whether this visitor may start a conversation. The
// network identity is diagnostic only; fingerprints are the sole block key
// since addresses are shared. Absent fingerprint or a store failure both
// admit, keeping the service available over strictly enforcing the policy.
func (g *Guard) MayProceed(ctx context.Context, netID, fingerprint string) bool {
	if fingerprint == "" {
		g.logger.Debug("no fingerprint, admitting", "net_id", netID)
		return true
	}
	completed, err := g.store.HasEverCompleted(ctx, fingerprint)
	if err != nil {
		g.logger.Warn("completion check failed, admitting", "net_id", netID, "error", err)
		return true
	}
	if completed {
		g.logger.Info("visitor blocked, conversation already completed",
			"net_id", netID, "fingerprint", truncateFP(fingerprint))
		return false
	}
	return true
}

func truncateFP(fp string) string {
	if len(fp) > 16 {
		return fp[:16] + "..."
	}
	return fp
}
