package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/history"
	"github.com/mikey/llm-support-triage/internal/adapters/intake"
	"github.com/mikey/llm-support-triage/internal/adapters/knowledge"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

func newConfig(t *testing.T, values map[string]any) *config.Config {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range values {
		cfg.Set(k, v)
	}
	return cfg
}

func TestHistoryFactory(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		typ  string
		want any
	}{
		{"memory", &history.MemoryStore{}},
		{"file", &history.FileStore{}},
		{"sqlite", &history.SQLiteStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg := newConfig(t, map[string]any{
				"history.type":        tt.typ,
				"history.dir":         filepath.Join(dir, "logs"),
				"history.sqlite_path": filepath.Join(dir, "db", "history.db"),
			})
			store, err := NewHistoryFactory(cfg, zap.NewNop()).CreateHistoryStore()
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}

	cfg := newConfig(t, map[string]any{"history.type": "cassandra"})
	_, err := NewHistoryFactory(cfg, zap.NewNop()).CreateHistoryStore()
	assert.Error(t, err)
}

func TestLLMFactoryRejectsUnknownProvider(t *testing.T) {
	cfg := newConfig(t, map[string]any{"llm.provider": "llama"})
	_, err := NewLLMFactory(cfg, zap.NewNop()).CreateLLMClient()
	assert.Error(t, err)
}

func TestLLMFactoryOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := newConfig(t, map[string]any{"llm.provider": "openai"})
	_, err := NewLLMFactory(cfg, zap.NewNop()).CreateLLMClient()
	assert.Error(t, err)

	cfg.Set("openai.api_key", "sk-test")
	client, err := NewLLMFactory(cfg, zap.NewNop()).CreateLLMClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestKnowledgeFactoryDisabled(t *testing.T) {
	cfg := newConfig(t, map[string]any{"knowledge.enabled": false})
	r, err := NewKnowledgeFactory(cfg, zap.NewNop()).CreateRetriever()
	require.NoError(t, err)
	assert.IsType(t, knowledge.Disabled{}, r)
}

func TestDownstreamFactory(t *testing.T) {
	cfg := newConfig(t, map[string]any{
		"profiles": []map[string]any{
			{"address": "Angry.Customer@example.com", "tone": "formal", "urgency_bias": "high"},
		},
	})
	f := NewDownstreamFactory(cfg, zap.NewNop())

	d, err := f.CreateDispatcher()
	require.NoError(t, err)
	assert.NotNil(t, d)

	dir, err := f.CreateProfileDirectory()
	require.NoError(t, err)
	assert.Equal(t, "formal", dir.Profile("angry.customer@example.com").Tone)
	assert.Equal(t, core.DefaultSenderProfile, dir.Profile("other@example.com"))

	cfg.Set("dispatch.sender", "smtp")
	cfg.Set("dispatch.smtp.address", "")
	_, err = f.CreateDispatcher()
	assert.Error(t, err)

	cfg.Set("dispatch.sender", "pigeon")
	_, err = f.CreateDispatcher()
	assert.Error(t, err)
}

func TestIntakeFactory(t *testing.T) {
	cfg := newConfig(t, map[string]any{"intake.type": "imap"})
	in, err := NewIntakeFactory(cfg, zap.NewNop(), nil).CreateEmailIntake()
	require.NoError(t, err)
	assert.IsType(t, &intake.IMAPIntake{}, in)

	cfg.Set("intake.type", "smtp")
	in, err = NewIntakeFactory(cfg, zap.NewNop(), nil).CreateEmailIntake()
	require.NoError(t, err)
	assert.IsType(t, &intake.SMTPIntake{}, in)

	cfg.Set("intake.type", "fax")
	_, err = NewIntakeFactory(cfg, zap.NewNop(), nil).CreateEmailIntake()
	assert.Error(t, err)
}

func TestPipelineFactory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inquiry.txt"), []byte("Custom inquiry reply.\n"), 0o644))

	cfg := newConfig(t, map[string]any{
		"responses.fallback_dir":        dir,
		"categories.complaint.guidance": "Apologize first.",
		"pipeline.confidence_threshold": 4,
	})
	f := NewPipelineFactory(cfg, zap.NewNop())

	catalog := f.CreateCatalog()
	assert.Equal(t, "Apologize first.", catalog.Guidance(core.CategoryComplaint))
	assert.NotEmpty(t, catalog.Definition(core.CategoryComplaint))

	pool, err := f.CreateFallbackPool()
	require.NoError(t, err)
	assert.Equal(t, "Custom inquiry reply.", pool.Pick(core.CategoryInquiry))

	text := NewTextProcessorFactory(cfg, zap.NewNop()).CreateTextProcessor()
	gateway := f.CreateGateway(nil)
	classifier := f.CreateClassifier(gateway, catalog, text)
	store := history.NewMemoryStore(zap.NewNop())
	assembler := f.CreateAssembler(knowledge.Disabled{}, store, nil)
	generator := f.CreateGenerator(gateway, assembler, store, catalog, pool, text)
	dispatcher, err := NewDownstreamFactory(cfg, zap.NewNop()).CreateDispatcher()
	require.NoError(t, err)

	service := f.CreateService(classifier, generator, dispatcher)
	result := service.Process(context.Background(), core.RawEmail{"id": "x"})
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
}
