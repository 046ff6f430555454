package predict

import (
	"context"
	"fmt"

	"senkyo/internal/config"

	"google.golang.org/genai"
)

// TextGenerator is the single LLM call the generator needs. Implementations
// must be safe for concurrent use.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
}

// GeminiClient implements TextGenerator over the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	maxTokens int32
}

// NewGeminiClient creates a Gemini-backed text generator. A missing API key
// is a configuration error and is surfaced immediately.
func NewGeminiClient(ctx context.Context, cfg config.Gemini) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or gemini.api_key in the config file")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// GenerateText sends one prompt and returns the raw model text.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: c.maxTokens,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
