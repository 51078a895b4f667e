package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend calls Gemini models through the Gen AI SDK.
type GeminiBackend struct {
	client          *genai.Client
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiBackend creates a Gemini API client authenticated with apiKey.
func NewGeminiBackend(ctx context.Context, apiKey string, temperature float32, maxOutputTokens int32) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiBackend: create genai client: %w", err)
	}
	return &GeminiBackend{
		client:          client,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// Complete implements Backend.
func (g *GeminiBackend) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("gemini: prompt blocked by model %s: %s", model, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("gemini: no candidates from model %s", model)
	}

	// An empty answer that finished normally is a valid reply, e.g. a page
	// with no transactions.
	text := resp.Text()
	if reason := resp.Candidates[0].FinishReason; text == "" && reason != genai.FinishReasonStop {
		return "", fmt.Errorf("gemini: empty response from model %s (finish reason %s)", model, reason)
	}
	return text, nil
}
