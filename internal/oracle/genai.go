package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIGenerator calls Gemini through the Google Gen AI SDK.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	return newGenAIGenerator(ctx, apiKey, model, "")
}

// newGenAIGenerator allows the API base URL to be overridden; empty keeps the SDK default.
func newGenAIGenerator(ctx context.Context, apiKey, model, baseURL string) (*GenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini API key is required for genai mode")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Name() string { return "genai" }

func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	temp := float32(req.Temperature)
	topP := float32(req.TopP)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("genai status %d: %w", apiErr.Code, err)
		}
		return "", fmt.Errorf("genai generate: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	cand := result.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", ErrEmptyCandidate
	}
	return cand.Content.Parts[0].Text, nil
}
