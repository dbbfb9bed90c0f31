package knowledge

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// GeminiEmbedder embeds texts with a Gemini embedding model
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates an embedder for the given model
func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedder{client: client, model: model}
}

// Embed returns one vector per text, in input order
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("Gemini embed failed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	result := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		result[i] = emb.Values
	}
	return result, nil
}

// Name returns the engine name
func (e *GeminiEmbedder) Name() string {
	return "gemini:" + e.model
}
