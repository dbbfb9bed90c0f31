package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGateway(client LLMClient, delay time.Duration) *Gateway {
	opts := DefaultGatewayOptions()
	opts.RetryDelay = delay
	return NewGateway(client, opts, zap.NewNop())
}

func TestGatewayComplete(t *testing.T) {
	tests := []struct {
		name         string
		steps        []scriptStep
		maxRetries   int
		wantText     string
		wantKind     FailureKind
		wantErr      bool
		wantCalls    int
		wantAttempts int
	}{
		{
			name:       "first attempt succeeds",
			steps:      []scriptStep{reply("hello")},
			maxRetries: 3,
			wantText:   "hello",
			wantCalls:  1,
		},
		{
			name:       "rate limited then succeeds",
			steps:      []scriptStep{fail(FailureRateLimited), reply("ok")},
			maxRetries: 3,
			wantText:   "ok",
			wantCalls:  2,
		},
		{
			name:       "transient failure then succeeds",
			steps:      []scriptStep{fail(FailureOther), fail(FailureOther), reply("ok")},
			maxRetries: 3,
			wantText:   "ok",
			wantCalls:  3,
		},
		{
			name:         "auth failure is not retried",
			steps:        []scriptStep{fail(FailureAuth), reply("never")},
			maxRetries:   3,
			wantErr:      true,
			wantKind:     FailureAuth,
			wantCalls:    1,
			wantAttempts: 1,
		},
		{
			name:         "bad request is not retried",
			steps:        []scriptStep{fail(FailureBadRequest), reply("never")},
			maxRetries:   3,
			wantErr:      true,
			wantKind:     FailureBadRequest,
			wantCalls:    1,
			wantAttempts: 1,
		},
		{
			name:         "rate limit exhausts attempts",
			steps:        []scriptStep{fail(FailureRateLimited)},
			maxRetries:   3,
			wantErr:      true,
			wantKind:     FailureRateLimited,
			wantCalls:    3,
			wantAttempts: 3,
		},
		{
			name:         "other failure exhausts attempts",
			steps:        []scriptStep{fail(FailureOther)},
			maxRetries:   4,
			wantErr:      true,
			wantKind:     FailureOther,
			wantCalls:    4,
			wantAttempts: 4,
		},
		{
			name:         "unclassified error counts as other",
			steps:        []scriptStep{{err: errors.New("connection reset")}},
			maxRetries:   2,
			wantErr:      true,
			wantKind:     FailureOther,
			wantCalls:    2,
			wantAttempts: 2,
		},
		{
			name:         "zero max retries makes one attempt",
			steps:        []scriptStep{fail(FailureOther)},
			maxRetries:   0,
			wantErr:      true,
			wantKind:     FailureOther,
			wantCalls:    1,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newScriptedClient(tt.steps...)
			g := testGateway(client, time.Millisecond)

			text, err := g.Complete(context.Background(), "prompt", 0, tt.maxRetries)
			assert.Equal(t, tt.wantCalls, client.Calls())

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantText, text)
				return
			}

			require.Error(t, err)
			assert.Empty(t, text)
			var gerr *GatewayError
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.wantKind, gerr.Kind)
			assert.Equal(t, tt.wantAttempts, gerr.Attempts)
		})
	}
}

func TestGatewaySendsPromptAndTemperature(t *testing.T) {
	client := newScriptedClient(reply("ok"))
	g := testGateway(client, time.Millisecond)

	_, err := g.Complete(context.Background(), "classify this", 0.5, 1)
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, float32(0.5), req.Temperature)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, "classify this", req.Messages[0].Content)
}

func TestGatewayWaitsBetweenAttempts(t *testing.T) {
	client := newScriptedClient(fail(FailureRateLimited))
	g := testGateway(client, 20*time.Millisecond)

	start := time.Now()
	_, err := g.Complete(context.Background(), "prompt", 0, 3)
	require.Error(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, 3, client.Calls())
}

func TestGatewayCancellationDuringBackoff(t *testing.T) {
	client := newScriptedClient(fail(FailureRateLimited))
	g := testGateway(client, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := g.Complete(ctx, "prompt", 0, 3)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		var gerr *GatewayError
		require.True(t, errors.As(err, &gerr))
		assert.Equal(t, 1, gerr.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("gateway did not abort on cancellation")
	}
	assert.Equal(t, 1, client.Calls())
}

func TestGatewayAlreadyCancelled(t *testing.T) {
	client := newScriptedClient(reply("ok"))
	g := testGateway(client, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Complete(ctx, "prompt", 0, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.Calls())
}

type panickingClient struct{}

func (panickingClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	panic("provider exploded")
}

func TestGatewayRecoversPanics(t *testing.T) {
	g := testGateway(panickingClient{}, time.Millisecond)

	text, err := g.Complete(context.Background(), "prompt", 0, 3)
	assert.Empty(t, text)
	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, FailureOther, gerr.Kind)
}

type nilClient struct{}

func (nilClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	return nil, nil
}

func TestGatewayNilCompletion(t *testing.T) {
	g := testGateway(nilClient{}, time.Millisecond)

	_, err := g.Complete(context.Background(), "prompt", 0, 2)
	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 2, gerr.Attempts)
}

func TestGatewayCircuitBreaker(t *testing.T) {
	client := newScriptedClient(fail(FailureOther))
	opts := DefaultGatewayOptions()
	opts.RetryDelay = time.Millisecond
	opts.BreakerEnabled = true
	opts.BreakerFailures = 2
	opts.BreakerTimeout = time.Hour
	g := NewGateway(client, opts, zap.NewNop())

	_, err := g.Complete(context.Background(), "prompt", 0, 5)
	require.Error(t, err)
	assert.Equal(t, 2, client.Calls(), "breaker should open after two consecutive failures")

	_, err = g.Complete(context.Background(), "prompt", 0, 5)
	require.Error(t, err)
	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, FailureOther, gerr.Kind)
	assert.Equal(t, 2, client.Calls(), "open breaker must not reach the provider")
}

func TestFailureKind(t *testing.T) {
	assert.True(t, FailureRateLimited.Retryable())
	assert.True(t, FailureOther.Retryable())
	assert.False(t, FailureAuth.Retryable())
	assert.False(t, FailureBadRequest.Retryable())

	assert.Equal(t, "auth_failed", FailureAuth.String())
	assert.Equal(t, FailureAuth, classifyFailure(NewProviderError("x", FailureAuth, errors.New("denied"))))
	assert.Equal(t, FailureOther, classifyFailure(errors.New("plain")))
}
