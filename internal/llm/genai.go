package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIConfig configures the Gemini backend.
type GenAIConfig struct {
	APIKey string

	// Model defaults to "gemini-2.5-flash".
	Model string
}

// GenAIBackend completes prompts with Google's Gemini API.
type GenAIBackend struct {
	client *genai.Client
	model  string
}

// NewGenAIBackend creates a Gemini client.
func NewGenAIBackend(ctx context.Context, cfg GenAIConfig) (*GenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, &BackendError{Provider: ProviderGemini, Err: errors.New("API key is required")}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &BackendError{Provider: ProviderGemini, Err: fmt.Errorf("creating client: %w", err)}
	}
	return &GenAIBackend{client: client, model: cfg.Model}, nil
}

// Complete sends the prompt as a single user turn.
func (g *GenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", &BackendError{Provider: ProviderGemini, Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &BackendError{Provider: ProviderGemini, Err: ErrEmptyResponse}
	}
	return text, nil
}
