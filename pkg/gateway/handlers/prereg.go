package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// PreRegistrationHandler captures launch-notification contacts submitted
// from the completion screen.
type PreRegistrationHandler struct {
	Store  store.Store
	Logger *slog.Logger
}

func (h PreRegistrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		SessionID   string `json:"session_id"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		NotifyEmail bool   `json:"notify_email"`
		NotifySMS   bool   `json:"notify_sms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if req.Email == "" && req.Phone == "" {
		writeError(w, http.StatusBadRequest, "email or phone required")
		return
	}

	err := h.Store.CreatePreRegistration(r.Context(), store.PreRegistration{
		SessionID:   req.SessionID,
		Name:        strings.TrimSpace(req.Name),
		Email:       req.Email,
		Phone:       req.Phone,
		NotifyEmail: req.NotifyEmail,
		NotifySMS:   req.NotifySMS,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("save pre-registration failed", "session_id", req.SessionID, "error", err)
		}
		writeError(w, http.StatusInternalServerError, "could not save registration")
		return
	}
	if err := h.Store.LogActivity(r.Context(), req.SessionID, "pre_registration", nil); err != nil && h.Logger != nil {
		h.Logger.Warn("log pre-registration activity failed", "session_id", req.SessionID, "error", err)
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}
