package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/observability"
)

// GatewayOptions configures the completion gateway
type GatewayOptions struct {
	// RetryDelay is the fixed wait between attempts
	RetryDelay time.Duration
	// CostPer1KTokens is used for cost accounting only
	CostPer1KTokens float64
	// MaxTokens caps the completion length; zero leaves it to the provider
	MaxTokens int
	// BreakerEnabled guards the provider with a circuit breaker
	BreakerEnabled bool
	// BreakerFailures is the number of consecutive failures that opens the breaker
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open
	BreakerTimeout time.Duration
}

// DefaultGatewayOptions returns the options used when nothing is configured
func DefaultGatewayOptions() GatewayOptions {
	return GatewayOptions{
		RetryDelay:      2 * time.Second,
		CostPer1KTokens: 0.0015,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Gateway wraps an LLMClient with bounded retry and failure classification.
// It is safe for concurrent use.
type Gateway struct {
	client  LLMClient
	breaker *gobreaker.CircuitBreaker
	opts    GatewayOptions
	logger  *zap.Logger
}

// NewGateway creates a new completion gateway
func NewGateway(client LLMClient, opts GatewayOptions, logger *zap.Logger) *Gateway {
	g := &Gateway{
		client: client,
		opts:   opts,
		logger: logger,
	}

	if opts.BreakerEnabled {
		failures := opts.BreakerFailures
		if failures == 0 {
			failures = 5
		}
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm-provider",
			MaxRequests: 1,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return g
}

// Complete sends the prompt to the provider and returns the raw completion text.
// At most maxRetries attempts are made; values below 1 mean a single attempt.
// Every returned error is a *GatewayError.
func (g *Gateway) Complete(ctx context.Context, prompt string, temperature float32, maxRetries int) (text string, err error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	attempts := 0
	lastKind := FailureOther

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Recovered from panic in completion call", zap.Any("panic", r))
			text = ""
			err = &GatewayError{Kind: FailureOther, Attempts: attempts, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	req := CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
		MaxTokens:   g.opts.MaxTokens,
	}

	var completion *Completion
	operation := func() error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}

		attempts++
		start := time.Now()
		c, callErr := g.call(ctx, req)
		if callErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				lastKind = FailureOther
				return backoff.Permanent(ctxErr)
			}

			lastKind = classifyFailure(callErr)
			observability.RecordLLMCall(lastKind.String(), time.Since(start))
			g.logger.Warn("Completion attempt failed",
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", maxRetries),
				zap.String("kind", lastKind.String()),
				zap.Error(callErr))

			if !lastKind.Retryable() {
				return backoff.Permanent(callErr)
			}
			return callErr
		}

		observability.RecordLLMCall("success", time.Since(start))
		completion = c
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.opts.RetryDelay), uint64(maxRetries-1)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		observability.RecordLLMRetry()
		g.logger.Debug("Retrying completion",
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", &GatewayError{Kind: lastKind, Attempts: attempts, Err: err}
	}

	g.account(completion, temperature)
	return completion.Text, nil
}

// call invokes the provider, through the breaker when one is configured
func (g *Gateway) call(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if g.breaker == nil {
		return g.invoke(ctx, req)
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		return g.invoke(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Fail fast while the provider is considered down
			return nil, backoff.Permanent(fmt.Errorf("provider unavailable: %w", err))
		}
		return nil, err
	}
	return res.(*Completion), nil
}

func (g *Gateway) invoke(ctx context.Context, req CompletionRequest) (*Completion, error) {
	c, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.New("provider returned no completion")
	}
	return c, nil
}

// account logs token usage and estimated cost for a successful completion
func (g *Gateway) account(c *Completion, temperature float32) {
	tokens := c.TotalTokens()
	cost := float64(tokens) / 1000 * g.opts.CostPer1KTokens

	observability.RecordLLMUsage(c.Model, c.PromptTokens, c.CompletionTokens, cost)
	g.logger.Info("Completion succeeded",
		zap.String("model", c.Model),
		zap.Float32("temperature", temperature),
		zap.Int("prompt_tokens", c.PromptTokens),
		zap.Int("completion_tokens", c.CompletionTokens),
		zap.Int("total_tokens", tokens),
		zap.Float64("estimated_cost", cost),
		zap.String("processing_id", c.ProcessingID))
}
