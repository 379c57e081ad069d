package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// StatisticsHandler reports aggregate usage counters for operators.
type StatisticsHandler struct {
	Store  store.Store
	Logger *slog.Logger
}

func (h StatisticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := h.Store.Statistics(r.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("load statistics failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
