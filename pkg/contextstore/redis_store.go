package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Address, err)
	}

	slog.Info("Connected to Redis", "address", opts.Address)

	return NewRedisStoreWithClient(client, opts.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// contextKey returns the Redis key for a database context
func (s *RedisStore) contextKey(key string) string {
	return s.prefix + key
}

// Save stores dbCtx under key for ttl
func (s *RedisStore) Save(ctx context.Context, key string, dbCtx DatabaseContext, ttl time.Duration) error {
	data, err := json.Marshal(dbCtx)
	if err != nil {
		return fmt.Errorf("failed to serialize database context %s: %w", key, err)
	}

	if err := s.client.Set(ctx, s.contextKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save database context %s: %w", key, err)
	}

	slog.Debug("Saved database context", "key", key, "tables", len(dbCtx.Tables), "ttl", ttl)
	return nil
}

// Load retrieves the context stored under key
func (s *RedisStore) Load(ctx context.Context, key string) (DatabaseContext, error) {
	data, err := s.client.Get(ctx, s.contextKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DatabaseContext{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	} else if err != nil {
		return DatabaseContext{}, fmt.Errorf("failed to load database context %s: %w", key, err)
	}

	var dbCtx DatabaseContext
	if err := json.Unmarshal(data, &dbCtx); err != nil {
		return DatabaseContext{}, fmt.Errorf("failed to deserialize database context %s: %w", key, err)
	}

	return dbCtx, nil
}

// Refresh extends the TTL of key
func (s *RedisStore) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.contextKey(key), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh database context %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	slog.Debug("Refreshed database context", "key", key, "ttl", ttl)
	return nil
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.contextKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete database context %s: %w", key, err)
	}

	slog.Debug("Deleted database context", "key", key)
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
