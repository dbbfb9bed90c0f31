// Package history provides HistoryStore implementations backed by memory,
// JSON files, SQLite, MySQL and Redis.
package history

import (
	"strings"
	"sync"

	"github.com/mikey/llm-support-triage/internal/core"
)

// Store is a HistoryStore that holds resources until closed
type Store interface {
	core.HistoryStore
	Close() error
}

// SenderKey maps a normalized sender address to a filesystem-safe key
func SenderKey(sender string) string {
	return strings.NewReplacer("@", "_at_", ".", "_dot_").Replace(strings.ToLower(sender))
}

// senderLocks hands out one mutex per sender so appends never interleave
type senderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSenderLocks() *senderLocks {
	return &senderLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *senderLocks) lock(sender string) func() {
	l.mu.Lock()
	m, ok := l.locks[sender]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sender] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// tail returns the last limit entries; a non-positive limit returns none
func tail[T any](entries []T, limit int) []T {
	if limit <= 0 {
		return nil
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]T, len(entries))
	copy(out, entries)
	return out
}
