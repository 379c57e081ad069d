// Package config loads gateway settings from AIVOICE_* environment
// variables with strict validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type LLMProvider string

const (
	LLMProviderOpenRouter LLMProvider = "openrouter"
	LLMProviderGemini     LLMProvider = "gemini"
)

type Config struct {
	Addr string

	// DatabaseURL selects Postgres persistence; empty runs the in-memory
	// store (development only, the access policy does not survive restarts).
	DatabaseURL string

	// Speech backend (ElevenLabs).
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	STTModelID        string
	TTSModelID        string

	// Language model backend.
	LLMProvider LLMProvider
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string

	// CORS / websocket origin allowlist; empty admits any origin.
	AllowedOrigins map[string]struct{}

	// Conversation policy.
	MaxTurns int

	// Remote call gate per speech capability.
	SpeechMaxConcurrent     int
	SpeechMaxAttempts       int
	SpeechRetryInitialDelay time.Duration

	// Live websocket tuning.
	WSReadLimit     int64
	WSWriteTimeout  time.Duration
	CompletionGrace time.Duration
	InitFlushDelay  time.Duration

	// TrustProxyHeaders makes the gateway take the client address from
	// X-Forwarded-For / X-Real-IP. Enable only behind a trusted proxy.
	TrustProxyHeaders bool

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                    envOr("AIVOICE_ADDR", ":8000"),
		DatabaseURL:             envOr("DATABASE_URL", ""),
		ElevenLabsAPIKey:        envOr("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:       envOr("AIVOICE_ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		STTModelID:              envOr("AIVOICE_STT_MODEL", "scribe_v1"),
		TTSModelID:              envOr("AIVOICE_TTS_MODEL", "eleven_flash_v2_5"),
		LLMProvider:             LLMProvider(envOr("AIVOICE_LLM_PROVIDER", string(LLMProviderOpenRouter))),
		LLMAPIKey:               envOr("LLM_API_KEY", ""),
		LLMBaseURL:              envOr("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:                envOr("LLM_MODEL_NAME", "x-ai/grok-4-fast"),
		AllowedOrigins:          make(map[string]struct{}),
		MaxTurns:                envIntOr("AIVOICE_MAX_TURNS", 10),
		SpeechMaxConcurrent:     envIntOr("AIVOICE_SPEECH_MAX_CONCURRENT", 3),
		SpeechMaxAttempts:       envIntOr("AIVOICE_SPEECH_MAX_ATTEMPTS", 3),
		SpeechRetryInitialDelay: envDurationOr("AIVOICE_SPEECH_RETRY_INITIAL_DELAY", 500*time.Millisecond),
		WSReadLimit:             envInt64Or("AIVOICE_WS_READ_LIMIT", 8<<20),
		WSWriteTimeout:          envDurationOr("AIVOICE_WS_WRITE_TIMEOUT", 10*time.Second),
		CompletionGrace:         envDurationOr("AIVOICE_COMPLETION_GRACE", 200*time.Millisecond),
		InitFlushDelay:          envDurationOr("AIVOICE_INIT_FLUSH_DELAY", 100*time.Millisecond),
		TrustProxyHeaders:       envBoolOr("AIVOICE_TRUST_PROXY_HEADERS", false),
		ReadHeaderTimeout:       envDurationOr("AIVOICE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod:     envDurationOr("AIVOICE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("ALLOWED_ORIGINS")) {
		cfg.AllowedOrigins[origin] = struct{}{}
	}

	if cfg.ElevenLabsAPIKey == "" {
		return Config{}, fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if cfg.LLMAPIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY must be set")
	}
	switch cfg.LLMProvider {
	case LLMProviderOpenRouter, LLMProviderGemini:
	default:
		return Config{}, fmt.Errorf("AIVOICE_LLM_PROVIDER must be one of openrouter|gemini")
	}
	if cfg.MaxTurns <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_MAX_TURNS must be > 0")
	}
	if cfg.SpeechMaxConcurrent <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_SPEECH_MAX_CONCURRENT must be > 0")
	}
	if cfg.SpeechMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_SPEECH_MAX_ATTEMPTS must be > 0")
	}
	if cfg.SpeechRetryInitialDelay <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_SPEECH_RETRY_INITIAL_DELAY must be > 0")
	}
	if cfg.WSReadLimit <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_WS_READ_LIMIT must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.CompletionGrace <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_COMPLETION_GRACE must be > 0")
	}
	if cfg.InitFlushDelay <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_INIT_FLUSH_DELAY must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("AIVOICE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// OriginAllowed reports whether a websocket/CORS origin may connect. An
// empty allowlist admits everything.
func (c Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	_, ok := c.AllowedOrigins[origin]
	return ok
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
