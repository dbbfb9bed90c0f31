package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the HistoryStore interface
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the history database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection serializes writes
	db.SetMaxOpenConns(1)

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			created_at TEXT NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			category TEXT NOT NULL,
			response TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on sender for window lookups
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sender_history_sender ON sender_history(sender, id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db, name: "sqlite", logger: logger}}, nil
}
