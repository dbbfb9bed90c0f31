package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	require.NoError(t, cfg.Validate())

	llm := cfg.GetLLM()
	assert.Equal(t, "openai", llm.Provider)
	assert.Equal(t, float32(0), llm.ClassifyTemperature)
	assert.Equal(t, float32(0.5), llm.RespondTemperature)
	assert.Equal(t, 3, llm.MaxAttempts)
	assert.Equal(t, 2*time.Second, llm.RetryDelay)
	assert.InDelta(t, 0.0015, llm.CostPer1KTokens, 1e-9)
	assert.False(t, llm.BreakerEnabled)

	assert.Equal(t, "gpt-3.5-turbo-0125", cfg.GetOpenAI().ModelName)

	p := cfg.GetPipeline()
	assert.Equal(t, 3, p.ConfidenceThreshold)
	assert.Equal(t, time.Duration(0), p.EmailTimeout)

	h := cfg.GetHistory()
	assert.Equal(t, "file", h.Type)
	assert.Equal(t, 3, h.Limit)

	k := cfg.GetKnowledge()
	assert.Equal(t, 3, k.TopK)
	assert.Equal(t, 500, k.ChunkSize)
	assert.Equal(t, 50, k.ChunkOverlap)

	assert.Equal(t, "log", cfg.GetDispatch().Sender)
	assert.Empty(t, cfg.GetCategories())

	in := cfg.GetIntake()
	assert.Equal(t, "smtp", in.Type)
	assert.Equal(t, 30*time.Second, in.SMTP.ShutdownTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"bad duration", "llm.retry_delay", "soon"},
		{"unknown provider", "llm.provider", "watson"},
		{"zero attempts", "llm.max_attempts", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewFromViper(NewEmptyViper())
			cfg.Set(tt.key, tt.value)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: gemini
  retry_delay: 500ms
categories:
  complaint:
    guidance: "Apologize first."
profiles:
  - address: angry.customer@example.com
    tone: formal
    urgency_bias: high
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.GetLLM().RetryDelay)

	cats := cfg.GetCategories()
	require.Contains(t, cats, "complaint")
	assert.Equal(t, "Apologize first.", cats["complaint"].Guidance)
	assert.Empty(t, cats["complaint"].Definition)

	profiles, err := cfg.GetProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, ProfileConfig{Address: "angry.customer@example.com", Tone: "formal", UrgencyBias: "high"}, profiles[0])
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TRIAGE_PIPELINE_WORKERS", "9")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.GetPipeline().Workers)
}

func TestNewFromMissingFile(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg := NewFromViper(NewEmptyViper())
	assert.Equal(t, "sk-from-env", cfg.GetOpenAI().APIKey)

	cfg.Set("openai.api_key", "sk-configured")
	assert.Equal(t, "sk-configured", cfg.GetOpenAI().APIKey)
}
