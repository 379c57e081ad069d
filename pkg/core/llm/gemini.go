package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jaminitachi/aivoice-learning/pkg/core/lesson"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini serves conversations through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Provider = (*Gemini)(nil)

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: gemini api key required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

func (g *Gemini) generate(ctx context.Context, systemPrompt string, contents []*genai.Content) (string, error) {
	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("llm: empty reply")
	}
	return text, nil
}

func userContent(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
}

func (g *Gemini) Respond(ctx context.Context, userText, systemPrompt string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: msg.Content}}})
	}
	contents = append(contents, userContent(userText))
	return g.generate(ctx, systemPrompt, contents)
}

func (g *Gemini) Suggest(ctx context.Context, history []Message, personaName string, difficulty lesson.Difficulty) ([]string, error) {
	text, err := g.generate(ctx, suggestSystemPrompt, []*genai.Content{userContent(suggestPrompt(history, personaName, difficulty))})
	if err != nil {
		return nil, err
	}
	return parseSuggestions(text)
}

func (g *Gemini) Evaluate(ctx context.Context, sentence string) (*FeedbackItem, error) {
	text, err := g.generate(ctx, evaluationSystemPrompt, []*genai.Content{userContent(evaluationPrompt(sentence))})
	if err != nil {
		return nil, err
	}
	return parseEvaluation(text)
}

func (g *Gemini) Assess(ctx context.Context, items []FeedbackItem) (*Assessment, error) {
	text, err := g.generate(ctx, assessSystemPrompt, []*genai.Content{userContent(assessPrompt(items))})
	if err != nil {
		return nil, err
	}
	return parseAssessment(text)
}
