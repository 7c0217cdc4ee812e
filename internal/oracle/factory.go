package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls generator construction.
type Config struct {
	Mode string

	GeminiAPIURL string
	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	Timeout     time.Duration
	MaxAttempts int
}

// NewGenerator picks a backend by mode: http, genai, openai, mock or auto.
func NewGenerator(ctx context.Context, cfg Config, logger zerolog.Logger) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoGenerator(ctx, cfg, logger)
	case "http":
		return NewHTTPGenerator(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.Timeout, cfg.MaxAttempts, logger)
	case "genai":
		return NewGenAIGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported oracle mode %q", cfg.Mode)
	}
}

func newAutoGenerator(ctx context.Context, cfg Config, logger zerolog.Logger) (Generator, error) {
	hasGeminiKey := strings.TrimSpace(cfg.GeminiAPIKey) != ""
	switch {
	case hasGeminiKey && strings.TrimSpace(cfg.GeminiAPIURL) != "":
		return NewHTTPGenerator(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.Timeout, cfg.MaxAttempts, logger)
	case hasGeminiKey:
		return NewGenAIGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		logger.Warn().Msg("no oracle credentials configured; using mock oracle")
		return NewMockGenerator(), nil
	}
}
