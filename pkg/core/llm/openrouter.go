package llm

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

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "x-ai/grok-4-fast"
)

// OpenRouterConfig configures the OpenAI-compatible chat completions client.
type OpenRouterConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OpenRouter talks to an OpenAI-compatible chat completions endpoint.
type OpenRouter struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

var _ Provider = (*OpenRouter)(nil)

func NewOpenRouter(cfg OpenRouterConfig) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: openrouter api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenRouter{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Reasoning   *reasoning    `json:"reasoning,omitempty"`
}

type reasoning struct {
	Enabled bool `json:"enabled"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenRouter) chat(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: chat completion status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}
	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("llm: upstream error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

func (o *OpenRouter) Respond(ctx context.Context, userText, systemPrompt string, history []Message) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: RoleUser, Content: userText})

	text, err := o.chat(ctx, chatRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   100,
		Temperature: 0.7,
		Reasoning:   &reasoning{Enabled: true},
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("llm: empty reply")
	}
	return text, nil
}

func (o *OpenRouter) Suggest(ctx context.Context, history []Message, personaName string, difficulty lesson.Difficulty) ([]string, error) {
	text, err := o.chat(ctx, chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: suggestSystemPrompt},
			{Role: RoleUser, Content: suggestPrompt(history, personaName, difficulty)},
		},
		MaxTokens:   150,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text)
}

func (o *OpenRouter) Evaluate(ctx context.Context, sentence string) (*FeedbackItem, error) {
	text, err := o.chat(ctx, chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: evaluationSystemPrompt},
			{Role: RoleUser, Content: evaluationPrompt(sentence)},
		},
		MaxTokens:   500,
		Temperature: 0.5,
		Reasoning:   &reasoning{Enabled: true},
	})
	if err != nil {
		return nil, err
	}
	return parseEvaluation(text)
}

func (o *OpenRouter) Assess(ctx context.Context, items []FeedbackItem) (*Assessment, error) {
	text, err := o.chat(ctx, chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: assessSystemPrompt},
			{Role: RoleUser, Content: assessPrompt(items)},
		},
		MaxTokens:   1000,
		Temperature: 0.7,
		Reasoning:   &reasoning{Enabled: true},
	})
	if err != nil {
		return nil, err
	}
	return parseAssessment(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
