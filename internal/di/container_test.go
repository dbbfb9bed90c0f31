package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildCLIContainer(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
openai:
  api_key: sk-test
history:
  type: memory
`)

	container, err := BuildCLIContainer(&CLIOptions{ConfigFile: path, Workers: 2})
	require.NoError(t, err)

	err = container.Invoke(func(service *core.TriageService, cfg *config.Config) {
		assert.Equal(t, 2, cfg.GetPipeline().Workers)

		result := service.Process(context.Background(), core.RawEmail{"id": "no-body", "subject": "hi"})
		assert.False(t, result.Success)
		assert.Equal(t, "no-body", result.EmailID)
		require.NotNil(t, result.Error)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerInvalidProvider(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: llama\n")

	container, err := BuildCLIContainer(&CLIOptions{ConfigFile: path})
	require.NoError(t, err)

	err = container.Invoke(func(service *core.TriageService) {})
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyOverrides(cfg, &CLIOptions{
		Provider: "gemini",
		Model:    "gemini-1.5-pro",
		History:  "sqlite",
		Workers:  8,
	})

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.GetGemini().ModelName)
	assert.Equal(t, "gpt-3.5-turbo-0125", cfg.GetOpenAI().ModelName)
	assert.Equal(t, "sqlite", cfg.GetHistory().Type)
	assert.Equal(t, 8, cfg.GetPipeline().Workers)
}
