package intent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Generator = (*GeminiGenerator)(nil)

const (
	DefaultModel = "gemini-2.0-flash"
	// replies are a single word
	maxReplyTokens = 10
)

// GeminiGenerator answers prompts with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), generateConfig())
	if err != nil {
		return "", &types.ProviderError{Provider: "gemini", Op: "generate", Err: err}
	}
	return result.Text(), nil
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: maxReplyTokens,
	}
}
