package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores.
// Row ids are assigned on insert, so ordering by id is append order.
type sqlStore struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

func (s *sqlStore) Append(ctx context.Context, sender string, entry core.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sender_history (sender, created_at, subject, body, category, response)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sender, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.Subject, entry.Body, string(entry.Category), entry.Response)
	if err != nil {
		return fmt.Errorf("failed to insert history entry into %s: %w", s.name, err)
	}

	s.logger.Debug("History entry appended",
		zap.String("store", s.name),
		zap.String("sender", sender))
	return nil
}

func (s *sqlStore) Fetch(ctx context.Context, sender string, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, subject, body, category, response
		FROM sender_history
		WHERE sender = ?
		ORDER BY id DESC
		LIMIT ?
	`, sender, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history from %s: %w", s.name, err)
	}
	defer rows.Close()

	var newestFirst []core.HistoryEntry
	for rows.Next() {
		var ts, category string
		var e core.HistoryEntry
		if err := rows.Scan(&ts, &e.Subject, &e.Body, &category, &e.Response); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if e.Timestamp, err = parseTimestamp(ts); err != nil {
			s.logger.Warn("Unreadable history timestamp", zap.String("sender", sender), zap.String("timestamp", ts))
		}
		e.Category = core.Category(category)
		newestFirst = append(newestFirst, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	out := make([]core.HistoryEntry, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.name, err)
	}
	return nil
}
