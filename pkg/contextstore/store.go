// Package contextstore caches the database context the assistant builds
// from list_tables and inspect_schema, so repeated runs against the same
// server skip the discovery calls.
package contextstore

import (
	"context"
	"errors"
	"time"

	"github.com/traego/mcp-db-assistant/pkg/config"
	"github.com/traego/mcp-db-assistant/pkg/dbtools"
)

// ErrNotFound is returned by Load when the key is missing or expired.
var ErrNotFound = errors.New("database context not found")

// DatabaseContext is what the assistant knows about the database.
type DatabaseContext struct {
	Tables  []string                        `json:"tables"`
	Schemas map[string]*dbtools.TableSchema `json:"schemas"`
}

// Store defines the interface for database context storage
type Store interface {
	// Save stores dbCtx under key for ttl
	Save(ctx context.Context, key string, dbCtx DatabaseContext, ttl time.Duration) error

	// Load retrieves the context stored under key
	Load(ctx context.Context, key string) (DatabaseContext, error)

	// Refresh extends the TTL of key
	Refresh(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// Close releases the store
	Close() error
}

// FromConfig returns the store described by cfg, or nil when caching is disabled.
func FromConfig(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Redis == nil {
		return NewMemoryStore(0), nil
	}
	return NewRedisStore(ctx, RedisOptions{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.KeyPrefix,
	})
}
