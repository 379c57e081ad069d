// Package server assembles the gateway: routes, middleware, providers,
// gates, and the live session registry.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/stt"
	"github.com/jaminitachi/aivoice-learning/pkg/core/voice/tts"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/access"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/config"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/gate"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/handlers"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/live/sessions"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/metrics"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/mw"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	mux     *http.ServeMux
	store   store.Store
	metrics *metrics.Metrics

	guard    *access.Guard
	registry *sessions.Registry

	httpSrv *http.Server
}

// New wires the full gateway. The store is owned by the caller; everything
// else is constructed here.
func New(cfg config.Config, st store.Store, llmProvider llm.Provider, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if st == nil {
		return nil, fmt.Errorf("server: store required")
	}
	if llmProvider == nil {
		return nil, fmt.Errorf("server: llm provider required")
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	sttProvider, err := stt.NewElevenLabs(stt.ElevenLabsConfig{
		APIKey:     cfg.ElevenLabsAPIKey,
		BaseURL:    cfg.ElevenLabsBaseURL,
		ModelID:    cfg.STTModelID,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("server: stt provider: %w", err)
	}
	ttsProvider, err := tts.NewElevenLabs(tts.ElevenLabsConfig{
		APIKey:     cfg.ElevenLabsAPIKey,
		BaseURL:    cfg.ElevenLabsBaseURL,
		ModelID:    cfg.TTSModelID,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("server: tts provider: %w", err)
	}

	m := metrics.New()

	sttGate, err := gate.New(gate.Config{
		Capability:    "stt",
		MaxConcurrent: cfg.SpeechMaxConcurrent,
		MaxAttempts:   cfg.SpeechMaxAttempts,
		InitialDelay:  cfg.SpeechRetryInitialDelay,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		return nil, fmt.Errorf("server: stt gate: %w", err)
	}
	ttsGate, err := gate.New(gate.Config{
		Capability:    "tts",
		MaxConcurrent: cfg.SpeechMaxConcurrent,
		MaxAttempts:   cfg.SpeechMaxAttempts,
		InitialDelay:  cfg.SpeechRetryInitialDelay,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		return nil, fmt.Errorf("server: tts gate: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		store:    st,
		metrics:  m,
		guard:    access.NewGuard(st, logger),
		registry: sessions.NewRegistry(st, logger, m),
	}
	s.routes(sttProvider, ttsProvider, llmProvider, sttGate, ttsGate)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes(sttP stt.Provider, ttsP tts.Provider, llmP llm.Provider, sttGate, ttsGate *gate.Gate) {
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.Handle("GET /api/characters", handlers.CharactersHandler{})
	s.mux.Handle("POST /api/check-block", handlers.BlockCheckHandler{
		Guard:      s.guard,
		TrustProxy: s.cfg.TrustProxyHeaders,
	})
	s.mux.Handle("GET /api/feedback/{session_id}", handlers.FeedbackHandler{
		Store:  s.store,
		Logger: s.logger,
	})
	s.mux.Handle("POST /api/pre-registration", handlers.PreRegistrationHandler{
		Store:  s.store,
		Logger: s.logger,
	})
	s.mux.Handle("GET /api/statistics", handlers.StatisticsHandler{
		Store:  s.store,
		Logger: s.logger,
	})

	s.mux.Handle("GET /ws/chat/{character_id}", handlers.ChatHandler{
		Config:   s.cfg,
		Logger:   s.logger,
		Store:    s.store,
		Guard:    s.guard,
		Registry: s.registry,
		STT:      sttP,
		TTS:      ttsP,
		LLM:      llmP,
		STTGate:  sttGate,
		TTSGate:  ttsGate,
		Metrics:  s.metrics,
	})
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.cfg.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, then waits for live conversations
// to retire within the grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if err := s.registry.Wait(ctx); err != nil {
		return fmt.Errorf("server: %d sessions still live at shutdown: %w", s.registry.Len(), err)
	}
	return nil
}
