package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/mikey/llm-support-triage/internal/core"
)

const providerName = "gemini"

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client    *genai.Client
	modelName string
	topP      float32
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(client *genai.Client, modelName string, topP float32, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		client:    client,
		modelName: modelName,
		topP:      topP,
		logger:    logger,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete generates content with Gemini. System messages become the system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	// A model handle per request keeps temperature settings isolated between callers
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(req.Temperature)
	model.SetTopP(c.topP)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var parts []genai.Part
	var system []string
	for _, m := range req.Messages {
		if m.Role == core.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(system, "\n\n")))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, core.NewProviderError(providerName, ClassifyError(err),
			fmt.Errorf("failed to generate content with Gemini: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, core.NewProviderError(providerName, core.FailureOther, errors.New("empty response from Gemini"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	completion := &core.Completion{
		Text:  text.String(),
		Model: c.modelName,
	}
	if resp.UsageMetadata != nil {
		completion.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	c.logger.Debug("Gemini completion received",
		zap.String("model", c.modelName),
		zap.Int("parts", len(resp.Candidates[0].Content.Parts)))

	return completion, nil
}

// ClassifyError maps a Gemini error to a failure kind
func ClassifyError(err error) core.FailureKind {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		// Safety blocks repeat for the same prompt
		return core.FailureBadRequest
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return core.FailureOther
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return core.FailureRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.FailureAuth
	case http.StatusBadRequest, http.StatusNotFound:
		return core.FailureBadRequest
	default:
		return core.FailureOther
	}
}
