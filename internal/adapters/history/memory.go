package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// MemoryStore is an in-memory implementation of the HistoryStore interface
type MemoryStore struct {
	entries map[string][]core.HistoryEntry
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory history store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]core.HistoryEntry),
		logger:  logger,
	}
}

// Append adds an entry to the end of the sender's history
func (s *MemoryStore) Append(ctx context.Context, sender string, entry core.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sender] = append(s.entries[sender], entry)
	s.logger.Debug("History entry appended",
		zap.String("sender", sender),
		zap.Int("entries", len(s.entries[sender])))
	return nil
}

// Fetch returns up to limit most recent entries, oldest first
func (s *MemoryStore) Fetch(ctx context.Context, sender string, limit int) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return tail(s.entries[sender], limit), nil
}

// Close releases nothing; it exists so all stores share a lifecycle
func (s *MemoryStore) Close() error {
	return nil
}
