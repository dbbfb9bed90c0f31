package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SeedDocuments is a small starter knowledge base
var SeedDocuments = []string{
	"If a user has issues logging in, ask them to reset their password.",
	"We do not offer refunds after 30 days.",
	"To request feature enhancements, email support with the subject 'Feature Request'.",
	"Technical issues are usually resolved within 48 hours.",
}

// Store is a SQLite-backed chunk store with embeddings.
// It implements core.Retriever.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   *zap.Logger
}

// NewStore opens (or creates) the knowledge database at dbPath
func NewStore(dbPath string, embedder Embedder, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			embedder TEXT NOT NULL,
			UNIQUE(source, content)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

// Add embeds and stores chunks under a source name, replacing identical chunks.
// It returns the number of chunks stored.
func (s *Store) Add(ctx context.Context, source string, chunks []string) (int, error) {
	var texts []string
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			texts = append(texts, c)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks from %s: %w", source, err)
	}
	if len(vecs) != len(texts) {
		return 0, fmt.Errorf("%s returned %d embeddings for %d chunks", s.embedder.Name(), len(vecs), len(texts))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO knowledge_chunks (source, content, embedding, embedder)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, text := range texts {
		data, err := json.Marshal(vecs[i])
		if err != nil {
			return 0, fmt.Errorf("failed to encode embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, source, text, string(data), s.embedder.Name()); err != nil {
			return 0, fmt.Errorf("failed to store chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chunks: %w", err)
	}

	s.logger.Info("Indexed knowledge chunks",
		zap.String("source", source),
		zap.Int("chunks", len(texts)),
		zap.String("embedder", s.embedder.Name()))
	return len(texts), nil
}

// IndexFile chunks a text file and stores it under its base name
func (s *Store) IndexFile(ctx context.Context, path string, size, overlap int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.Add(ctx, filepath.Base(path), Chunk(string(data), size, overlap))
}

// Count returns the number of stored chunks
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// TopK returns the k stored chunks most similar to query, best first
func (s *Store) TopK(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	queryVec, err := embedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, embedding FROM knowledge_chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		id         int64
		content    string
		similarity float64
	}
	var candidates []candidate

	for rows.Next() {
		var c candidate
		var raw string
		if err := rows.Scan(&c.id, &c.content, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			s.logger.Warn("Skipping chunk with unreadable embedding", zap.Int64("chunk_id", c.id))
			continue
		}
		if c.similarity, err = CosineSimilarity(queryVec, vec); err != nil {
			s.logger.Warn("Skipping chunk from a different embedder",
				zap.Int64("chunk_id", c.id),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	// Ties keep insertion order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.content
	}
	return out, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Disabled is a Retriever for deployments without a knowledge base
type Disabled struct{}

// TopK always returns no snippets
func (Disabled) TopK(ctx context.Context, query string, k int) ([]string, error) {
	return nil, nil
}
