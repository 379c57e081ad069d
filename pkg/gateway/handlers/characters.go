package handlers

import (
	"net/http"

	"github.com/jaminitachi/aivoice-learning/pkg/core/characters"
)

// CharactersHandler lists the persona catalog. Voice IDs, prompts, and
// greetings never serialize; the catalog types keep them off the wire.
type CharactersHandler struct{}

func (h CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Characters []characters.Character `json:"characters"`
	}{Characters: characters.All()})
}
