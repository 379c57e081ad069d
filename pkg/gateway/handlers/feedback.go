package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaminitachi/aivoice-learning/pkg/core/characters"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// FeedbackHandler serves the post-conversation report for a completed
// session: the full transcript plus the per-utterance and overall feedback
// recorded during the conversation.
type FeedbackHandler struct {
	Store  store.Store
	Logger *slog.Logger
}

type feedbackResponse struct {
	SessionID       string          `json:"session_id"`
	CharacterID     string          `json:"character_id"`
	CharacterName   string          `json:"character_name,omitempty"`
	Difficulty      string          `json:"difficulty"`
	TurnCount       int             `json:"turn_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	History         json.RawMessage `json:"history"`
	Feedback        json.RawMessage `json:"feedback"`
}

func (h FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	rec, err := h.Store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if h.Logger != nil {
			h.Logger.Error("load session failed", "session_id", sessionID, "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !rec.Completed {
		writeError(w, http.StatusConflict, "session is not completed yet")
		return
	}

	resp := feedbackResponse{
		SessionID:   rec.ID,
		CharacterID: rec.CharacterID,
		Difficulty:  rec.Difficulty,
		TurnCount:   rec.TurnCount,
		History:     emptyObjectIfNil(rec.History, "[]"),
		Feedback:    emptyObjectIfNil(rec.Feedback, "{}"),
	}
	if char, ok := characters.ByID(rec.CharacterID); ok {
		resp.CharacterName = char.Name
	}
	if rec.EndTime != nil {
		resp.DurationSeconds = rec.EndTime.Sub(rec.StartTime).Round(time.Millisecond).Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func emptyObjectIfNil(raw json.RawMessage, empty string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(empty)
	}
	return raw
}
