package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the HistoryStore interface
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to MySQL and creates the history table if needed
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sender_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			sender VARCHAR(320) NOT NULL,
			created_at VARCHAR(40) NOT NULL,
			subject TEXT NOT NULL,
			body MEDIUMTEXT NOT NULL,
			category VARCHAR(32) NOT NULL,
			response MEDIUMTEXT NOT NULL,
			INDEX idx_sender_history_sender (sender, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{sqlStore{db: db, name: "mysql", logger: logger}}, nil
}
