package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID = "eleven_flash_v2_5"

	// streamChunkSize matches the transfer unit forwarded to clients.
	streamChunkSize = 4096
)

// ElevenLabsConfig configures the ElevenLabs text-to-speech client.
type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ElevenLabs synthesizes speech through the ElevenLabs streaming API.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	modelID string
	http    *http.Client
	logger  *slog.Logger
}

var _ Provider = (*ElevenLabs)(nil)

func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tts: elevenlabs api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		modelID: cfg.ModelID,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// SynthesizeStream opens a streaming synthesis. The returned Stream is only
// non-nil once the API has accepted the request, so request-level failures
// stay retryable.
func (e *ElevenLabs) SynthesizeStream(ctx context.Context, text, voiceID string) (*Stream, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream", e.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &transportError{op: "text-to-speech", err: err}
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &apiError{op: "text-to-speech", status: resp.StatusCode, detail: string(detail)}
	}

	stream := NewStream(4)
	go func() {
		defer resp.Body.Close()
		buf := make([]byte, streamChunkSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !stream.Send(ctx, chunk) {
					stream.Close(ctx.Err())
					return
				}
			}
			if readErr == io.EOF {
				stream.Close(nil)
				return
			}
			if readErr != nil {
				stream.Close(fmt.Errorf("tts: read stream: %w", readErr))
				return
			}
		}
	}()
	return stream, nil
}
