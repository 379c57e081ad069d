package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID = "scribe_v1"
)

// ElevenLabsConfig configures the ElevenLabs speech-to-text client.
type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ElevenLabs transcribes audio through the ElevenLabs speech-to-text API.
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
		return nil, fmt.Errorf("stt: elevenlabs api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
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

func (e *ElevenLabs) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("model_id", e.modelID); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.webm"`)
	header.Set("Content-Type", "audio/webm")
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := e.http.Do(req)
	if err != nil {
		return "", &transportError{op: "speech-to-text", err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &apiError{op: "speech-to-text", status: resp.StatusCode, detail: string(detail)}
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}
	return decoded.Text, nil
}
