package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	t.Setenv("LLM_API_KEY", "llm-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.MaxTurns != 10 {
		t.Fatalf("MaxTurns = %d", cfg.MaxTurns)
	}
	if cfg.SpeechMaxConcurrent != 3 || cfg.SpeechMaxAttempts != 3 {
		t.Fatalf("speech gate defaults = %d/%d", cfg.SpeechMaxConcurrent, cfg.SpeechMaxAttempts)
	}
	if cfg.SpeechRetryInitialDelay != 500*time.Millisecond {
		t.Fatalf("retry delay = %v", cfg.SpeechRetryInitialDelay)
	}
	if cfg.LLMProvider != LLMProviderOpenRouter {
		t.Fatalf("provider = %q", cfg.LLMProvider)
	}
}

func TestLoadMissingKeys(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("LLM_API_KEY", "llm-key")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error without ELEVENLABS_API_KEY")
	}

	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	t.Setenv("LLM_API_KEY", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error without LLM_API_KEY")
	}
}

func TestLoadBadProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("AIVOICE_LLM_PROVIDER", "clippy")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoadBadMaxTurns(t *testing.T) {
	setRequired(t)
	t.Setenv("AIVOICE_MAX_TURNS", "-1")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for negative max turns")
	}
}

func TestOriginAllowed(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if !cfg.OriginAllowed("https://app.example.com") {
		t.Fatalf("allowlisted origin rejected")
	}
	if cfg.OriginAllowed("https://evil.example.com") {
		t.Fatalf("unknown origin admitted")
	}

	open := Config{}
	if !open.OriginAllowed("https://anything.example.com") {
		t.Fatalf("empty allowlist must admit all origins")
	}
}
