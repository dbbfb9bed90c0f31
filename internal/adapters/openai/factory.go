package openai

import (
	"errors"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// NewAPIClient builds the underlying go-openai client from configuration
func NewAPIClient(cfg config.OpenAIConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai.api_key (or OPENAI_API_KEY) is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// CreateLLMClient creates a new OpenAIClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	// Get OpenAI config
	openaiCfg := f.cfg.GetOpenAI()

	client, err := NewAPIClient(openaiCfg)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Using OpenAI provider", zap.String("model", openaiCfg.ModelName))
	return NewOpenAIClient(client, openaiCfg.ModelName, openaiCfg.TopP, f.logger), nil
}
