package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// NewAPIClient builds the underlying genai client from configuration
func NewAPIClient(ctx context.Context, cfg config.GeminiConfig) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini.api_key (or GEMINI_API_KEY) is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// CreateLLMClient creates a new GeminiClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	geminiCfg := f.cfg.GetGemini()

	client, err := NewAPIClient(context.Background(), geminiCfg)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Using Gemini provider", zap.String("model", geminiCfg.ModelName))
	return NewGeminiClient(client, geminiCfg.ModelName, geminiCfg.TopP, f.logger), nil
}
