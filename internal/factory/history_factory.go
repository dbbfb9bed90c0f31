package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/adapters/history"
	"github.com/mikey/llm-support-triage/internal/config"
)

// HistoryFactory creates sender history stores based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryStore creates a history store based on the configuration
func (f *HistoryFactory) CreateHistoryStore() (history.Store, error) {
	hc := f.cfg.GetHistory()
	logger := f.logger.Named("history")

	switch hc.Type {
	case "memory":
		return history.NewMemoryStore(logger), nil
	case "file":
		return history.NewFileStore(hc.Dir, logger)
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(hc.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return history.NewSQLiteStore(hc.SQLitePath, logger)
	case "mysql":
		return history.NewMySQLStore(hc.MySQLDSN, logger)
	case "redis":
		return history.NewRedisStore(hc.Redis.Address, hc.Redis.Password, hc.Redis.DB, hc.Redis.Prefix, logger)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", hc.Type)
	}
}
