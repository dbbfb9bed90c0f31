package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

const providerName = "openai"

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client    *openai.Client
	modelName string
	topP      float32
	logger    *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(client *openai.Client, modelName string, topP float32, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		client:    client,
		modelName: modelName,
		topP:      topP,
		logger:    logger,
	}
}

// Complete sends a chat completion request to OpenAI
func (c *OpenAIClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == core.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, core.NewProviderError(providerName, ClassifyError(err),
			fmt.Errorf("failed to create chat completion with OpenAI: %w", err))
	}

	if len(resp.Choices) == 0 {
		return nil, core.NewProviderError(providerName, core.FailureOther, errors.New("empty response from OpenAI"))
	}

	c.logger.Debug("OpenAI completion received",
		zap.String("id", resp.ID),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))

	return &core.Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		ProcessingID:     resp.ID,
	}, nil
}

// wireTemperature keeps a zero temperature on the wire. The request field is
// omitempty, and an omitted temperature means 1.0 to the API.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// ClassifyError maps an OpenAI error to a failure kind by HTTP status
func ClassifyError(err error) core.FailureKind {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	return kindForStatus(status)
}

func kindForStatus(status int) core.FailureKind {
	switch status {
	case http.StatusTooManyRequests:
		return core.FailureRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.FailureAuth
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return core.FailureBadRequest
	default:
		return core.FailureOther
	}
}
