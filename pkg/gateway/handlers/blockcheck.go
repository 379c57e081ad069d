package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jaminitachi/aivoice-learning/pkg/gateway/access"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/mw"
)

// BlockCheckHandler answers the pre-connection probe the client uses to
// show the "already completed" screen without opening a websocket. The
// websocket init re-checks, so this answer is advisory.
type BlockCheckHandler struct {
	Guard      *access.Guard
	TrustProxy bool
}

func (h BlockCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	netID := mw.ClientIP(r, h.TrustProxy)
	blocked := !h.Guard.MayProceed(r.Context(), netID, req.Fingerprint)
	writeJSON(w, http.StatusOK, struct {
		Blocked bool `json:"blocked"`
	}{Blocked: blocked})
}
