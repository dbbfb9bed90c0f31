package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.FailureKind
	}{
		{"quota exceeded", &googleapi.Error{Code: http.StatusTooManyRequests}, core.FailureRateLimited},
		{"bad key", &googleapi.Error{Code: http.StatusForbidden}, core.FailureAuth},
		{"unauthenticated", &googleapi.Error{Code: http.StatusUnauthorized}, core.FailureAuth},
		{"invalid argument", &googleapi.Error{Code: http.StatusBadRequest}, core.FailureBadRequest},
		{"unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, core.FailureOther},
		{"wrapped", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), core.FailureRateLimited},
		{"blocked prompt", &genai.BlockedError{}, core.FailureBadRequest},
		{"network", errors.New("connection reset"), core.FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	f := NewFactory(config.NewFromViper(config.NewEmptyViper()), nil)

	_, err := f.CreateLLMClient()
	assert.Error(t, err)
}
