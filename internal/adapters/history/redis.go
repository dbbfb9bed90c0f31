package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// RedisStore keeps each sender's history in a Redis list.
// RPUSH is atomic, so concurrent appends keep their order.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int, prefix string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, client.Close, prefix, logger), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.Cmdable, closer func() error, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		closer: closer,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) key(sender string) string {
	return s.prefix + sender
}

// Append pushes an entry onto the sender's list
func (s *RedisStore) Append(ctx context.Context, sender string, entry core.HistoryEntry) error {
	entry.Timestamp = entry.Timestamp.UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	if err := s.client.RPush(ctx, s.key(sender), data).Err(); err != nil {
		return fmt.Errorf("failed to append history to Redis: %w", err)
	}

	s.logger.Debug("History entry appended", zap.String("store", "redis"), zap.String("sender", sender))
	return nil
}

// Fetch returns up to limit most recent entries, oldest first
func (s *RedisStore) Fetch(ctx context.Context, sender string, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key(sender), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from Redis: %w", err)
	}

	out := make([]core.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e core.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
