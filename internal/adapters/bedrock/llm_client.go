package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

const (
	providerName     = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1000
)

// InvokeModelAPI is the part of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client  InvokeModelAPI
	modelID string
	topP    float32
	logger  *zap.Logger
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(client InvokeModelAPI, modelID string, topP float32, logger *zap.Logger) *BedrockClient {
	return &BedrockClient{
		client:  client,
		modelID: modelID,
		topP:    topP,
		logger:  logger,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      float32            `json:"temperature"`
	TopP             float32            `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type titanResponse struct {
	InputTextTokenCount int `json:"inputTextTokenCount"`
	Results             []struct {
		TokenCount int    `json:"tokenCount"`
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// Complete invokes the configured Bedrock model
func (c *BedrockClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	payload, err := c.buildPayload(req)
	if err != nil {
		return nil, core.NewProviderError(providerName, core.FailureBadRequest,
			fmt.Errorf("failed to marshal request payload: %w", err))
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, core.NewProviderError(providerName, ClassifyError(err),
			fmt.Errorf("failed to invoke Bedrock model: %w", err))
	}

	completion, err := c.parseResponse(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(providerName, core.FailureOther, err)
	}

	c.logger.Debug("Bedrock completion received",
		zap.String("model", c.modelID),
		zap.Int("completion_tokens", completion.CompletionTokens))

	return completion, nil
}

func (c *BedrockClient) buildPayload(req core.CompletionRequest) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var system, prompt []string
	for _, m := range req.Messages {
		if m.Role == core.RoleSystem {
			system = append(system, m.Content)
		} else {
			prompt = append(prompt, m.Content)
		}
	}

	switch {
	case c.isAnthropicModel():
		return json.Marshal(anthropicRequest{
			AnthropicVersion: anthropicVersion,
			MaxTokens:        maxTokens,
			System:           strings.Join(system, "\n\n"),
			Messages:         []anthropicMessage{{Role: "user", Content: strings.Join(prompt, "\n\n")}},
			Temperature:      req.Temperature,
			TopP:             c.topP,
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": strings.Join(append(system, prompt...), "\n\n"),
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   req.Temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      strings.Join(append(system, prompt...), "\n\n"),
			"max_tokens":  maxTokens,
			"temperature": req.Temperature,
			"top_p":       c.topP,
		})
	}
}

func (c *BedrockClient) parseResponse(body []byte) (*core.Completion, error) {
	completion := &core.Completion{Model: c.modelID}

	switch {
	case c.isAnthropicModel():
		var resp anthropicResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		completion.Text = text.String()
		completion.PromptTokens = resp.Usage.InputTokens
		completion.CompletionTokens = resp.Usage.OutputTokens
	case c.isAmazonTitanModel():
		var resp titanResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return nil, errors.New("empty response from Titan model")
		}
		completion.Text = resp.Results[0].OutputText
		completion.PromptTokens = resp.InputTextTokenCount
		completion.CompletionTokens = resp.Results[0].TokenCount
	default:
		var resp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		switch {
		case resp.Output != "":
			completion.Text = resp.Output
		case resp.Text != "":
			completion.Text = resp.Text
		default:
			completion.Text = resp.Response
		}
	}

	return completion, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude") || strings.Contains(c.modelID, ".anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// ClassifyError maps a Bedrock error to a failure kind
func ClassifyError(err error) core.FailureKind {
	var throttled *types.ThrottlingException
	var quota *types.ServiceQuotaExceededException
	var denied *types.AccessDeniedException
	var invalid *types.ValidationException
	var notFound *types.ResourceNotFoundException

	switch {
	case errors.As(err, &throttled), errors.As(err, &quota):
		return core.FailureRateLimited
	case errors.As(err, &denied):
		return core.FailureAuth
	case errors.As(err, &invalid), errors.As(err, &notFound):
		return core.FailureBadRequest
	default:
		return core.FailureOther
	}
}
