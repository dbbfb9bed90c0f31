package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// timestampLayouts are accepted when reading history files written by other tools
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// fileEntry is the on-disk form of a history entry
type fileEntry struct {
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Response  string `json:"response"`
}

// FileStore keeps one JSON array per sender in <dir>/<sender key>.json
type FileStore struct {
	dir    string
	locks  *senderLocks
	logger *zap.Logger
}

// NewFileStore creates a file-backed history store, creating dir if needed
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		locks:  newSenderLocks(),
		logger: logger,
	}, nil
}

// Path returns the file holding a sender's history
func (s *FileStore) Path(sender string) string {
	return filepath.Join(s.dir, SenderKey(sender)+".json")
}

// Append adds an entry to the end of the sender's history file
func (s *FileStore) Append(ctx context.Context, sender string, entry core.HistoryEntry) error {
	unlock := s.locks.lock(sender)
	defer unlock()

	entries, err := s.read(sender)
	if err != nil {
		return err
	}

	entries = append(entries, fileEntry{
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   entry.Subject,
		Body:      entry.Body,
		Category:  string(entry.Category),
		Response:  entry.Response,
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial array
	path := s.Path(sender)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	s.logger.Debug("History entry appended",
		zap.String("sender", sender),
		zap.String("path", path),
		zap.Int("entries", len(entries)))
	return nil
}

// Fetch returns up to limit most recent entries, oldest first
func (s *FileStore) Fetch(ctx context.Context, sender string, limit int) ([]core.HistoryEntry, error) {
	unlock := s.locks.lock(sender)
	entries, err := s.read(sender)
	unlock()
	if err != nil {
		return nil, err
	}

	window := tail(entries, limit)
	out := make([]core.HistoryEntry, 0, len(window))
	for _, e := range window {
		ts, err := parseTimestamp(e.Timestamp)
		if err != nil {
			s.logger.Warn("Unreadable history timestamp",
				zap.String("sender", sender),
				zap.String("timestamp", e.Timestamp))
		}
		out = append(out, core.HistoryEntry{
			Timestamp: ts,
			Subject:   e.Subject,
			Body:      e.Body,
			Category:  core.Category(e.Category),
			Response:  e.Response,
		})
	}
	return out, nil
}

// Close releases nothing; it exists so all stores share a lifecycle
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(sender string) ([]fileEntry, error) {
	data, err := os.ReadFile(s.Path(sender))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", sender, err)
	}
	return entries, nil
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
