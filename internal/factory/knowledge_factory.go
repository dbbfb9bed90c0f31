package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/gemini"
	"github.com/mikey/llm-support-triage/internal/adapters/knowledge"
	"github.com/mikey/llm-support-triage/internal/adapters/openai"
	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/core"
)

// KnowledgeFactory creates the knowledge base retriever
type KnowledgeFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewKnowledgeFactory creates a new knowledge factory
func NewKnowledgeFactory(cfg *config.Config, logger *zap.Logger) *KnowledgeFactory {
	return &KnowledgeFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmbedder creates the configured embedding engine
func (f *KnowledgeFactory) CreateEmbedder() (knowledge.Embedder, error) {
	switch embedder := f.cfg.GetKnowledge().Embedder; embedder {
	case "openai":
		oc := f.cfg.GetOpenAI()
		client, err := openai.NewAPIClient(oc)
		if err != nil {
			return nil, err
		}
		return knowledge.NewOpenAIEmbedder(client, oc.EmbeddingModel), nil
	case "gemini":
		gc := f.cfg.GetGemini()
		client, err := gemini.NewAPIClient(context.Background(), gc)
		if err != nil {
			return nil, err
		}
		return knowledge.NewGeminiEmbedder(client, gc.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unsupported embedder: %s", embedder)
	}
}

// CreateStore opens the knowledge store
func (f *KnowledgeFactory) CreateStore() (*knowledge.Store, error) {
	kc := f.cfg.GetKnowledge()

	embedder, err := f.CreateEmbedder()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(kc.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create knowledge directory: %w", err)
	}
	return knowledge.NewStore(kc.DBPath, embedder, f.logger.Named("knowledge"))
}

// CreateRetriever returns the knowledge store, or a disabled retriever when the
// knowledge base is turned off
func (f *KnowledgeFactory) CreateRetriever() (core.Retriever, error) {
	if !f.cfg.GetKnowledge().Enabled {
		f.logger.Info("Knowledge base disabled")
		return knowledge.Disabled{}, nil
	}
	return f.CreateStore()
}
