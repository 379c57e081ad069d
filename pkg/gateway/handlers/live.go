package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jaminitachi/aivoice-learning/pkg/core/characters"
	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/stt"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/tts"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/access"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/config"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/gate"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/protocol"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/session"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/sessions"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/metrics"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/mw"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

// ChatHandler upgrades /ws/chat/{character_id} and hands the connection to
// a conversation pipeline.
type ChatHandler struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    store.Store
	Guard    *access.Guard
	Registry *sessions.Registry
	STT      stt.Provider
	TTS      tts.Provider
	LLM      llm.Provider
	STTGate  *gate.Gate
	TTSGate  *gate.Gate
	Metrics  *metrics.Metrics
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	char, ok := characters.ByID(r.PathValue("character_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return h.Config.OriginAllowed(r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	netID := mw.ClientIP(r, h.Config.TrustProxyHeaders)

	// Coarse connect-time check. No fingerprint travels on the URL, so
	// this admits under the fingerprint-only policy; the authoritative
	// check runs when init carries the fingerprint.
	if !h.Guard.MayProceed(r.Context(), netID, "") {
		conn.WriteJSON(protocol.NewBlocked("You have already completed a conversation. Thank you for trying the demo!"))
		return
	}

	connKey := uuid.NewString()

	sess, err := h.Registry.Create(r.Context(), char.ID, connKey, netID, r.UserAgent())
	if err != nil {
		logger.Error("create session failed", "character_id", char.ID, "error", err)
		return
	}
	// Retirement must persist even when the request context died with the
	// connection.
	defer h.Registry.Retire(context.WithoutCancel(r.Context()), connKey)

	if err := conn.WriteJSON(protocol.NewConnected(char.ID, char.Name, sess.ID(), h.Config.MaxTurns, char.InitMessage)); err != nil {
		logger.Debug("write connected failed", "session_id", sess.ID(), "error", err)
		return
	}

	pipeline, err := session.NewPipeline(session.Dependencies{
		Conn:      conn,
		Logger:    logger,
		Store:     h.Store,
		Guard:     h.Guard,
		STT:       h.STT,
		TTS:       h.TTS,
		LLM:       h.LLM,
		STTGate:   h.STTGate,
		TTSGate:   h.TTSGate,
		Metrics:   h.Metrics,
		Character: char,
		Session:   sess,
		NetID:     netID,
	}, session.Config{
		MaxTurns:        h.Config.MaxTurns,
		ReadLimit:       h.Config.WSReadLimit,
		WriteTimeout:    h.Config.WSWriteTimeout,
		CompletionGrace: h.Config.CompletionGrace,
		InitFlushDelay:  h.Config.InitFlushDelay,
	})
	if err != nil {
		logger.Error("build pipeline failed", "session_id", sess.ID(), "error", err)
		return
	}
	pipeline.Run(r.Context())
}
