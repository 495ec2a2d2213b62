package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisStore appends records to a Redis list with RPUSH, which is atomic,
// so concurrent requests never race on the log.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

// ConnectRedis dials addr and checks the connection.
func ConnectRedis(ctx context.Context, addr, key string, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, key, logger), nil
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, _ string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("history: record is not valid JSON")
	}
	if err := s.client.RPush(ctx, s.key, string(doc)).Err(); err != nil {
		return fmt.Errorf("error adding to history list: %w", err)
	}
	return nil
}

// List implements Store. Entries that are not valid JSON are skipped.
func (s *RedisStore) List(ctx context.Context, limit int) ([]json.RawMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	values, err := s.client.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading history list: %w", err)
	}

	docs := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		if !json.Valid([]byte(v)) {
			s.logger.Warn("skipping corrupt history entry", "key", s.key)
			continue
		}
		docs = append(docs, json.RawMessage(v))
	}
	return docs, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
