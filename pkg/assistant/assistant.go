// Package assistant answers a few English questions about a sales database
// by mapping them onto SQL templates and rendering the rows as prose.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/traego/mcp-db-assistant/pkg/contextstore"
	"github.com/traego/mcp-db-assistant/pkg/dbtools"
)

// DefaultSchemaTableLimit is the number of tables inspected when the context is built.
const DefaultSchemaTableLimit = 5

// DatabaseContext is what the assistant knows about the database.
type DatabaseContext = contextstore.DatabaseContext

// Assistant answers questions using the database tools.
type Assistant struct {
	tools *dbtools.Tools
	dbCtx DatabaseContext

	schemaTableLimit int

	store    contextstore.Store
	cacheKey string
	cacheTTL time.Duration
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithStore caches the database context in store under key for ttl.
func WithStore(store contextstore.Store, key string, ttl time.Duration) Option {
	return func(a *Assistant) {
		a.store = store
		a.cacheKey = key
		a.cacheTTL = ttl
	}
}

// WithSchemaTableLimit sets how many tables have their schema inspected.
func WithSchemaTableLimit(n int) Option {
	return func(a *Assistant) {
		if n >= 0 {
			a.schemaTableLimit = n
		}
	}
}

// New creates an assistant and builds its database context.
func New(ctx context.Context, tools *dbtools.Tools, opts ...Option) (*Assistant, error) {
	a := &Assistant{
		tools:            tools,
		schemaTableLimit: DefaultSchemaTableLimit,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.loadCachedContext(ctx) {
		return a, nil
	}

	dbCtx, err := a.buildContext(ctx)
	if err != nil {
		return nil, err
	}
	a.dbCtx = dbCtx
	a.saveContext(ctx)

	return a, nil
}

// Context returns the database context.
func (a *Assistant) Context() DatabaseContext {
	return a.dbCtx
}

// buildContext lists the tables and inspects the schema of the first
// schemaTableLimit of them. A table whose schema cannot be inspected is left out.
func (a *Assistant) buildContext(ctx context.Context) (DatabaseContext, error) {
	tables, err := a.tools.ListTables(ctx)
	if err != nil {
		return DatabaseContext{}, fmt.Errorf("failed to list tables: %w", err)
	}

	dbCtx := DatabaseContext{
		Tables:  tables,
		Schemas: make(map[string]*dbtools.TableSchema),
	}

	limit := min(a.schemaTableLimit, len(tables))
	for _, table := range tables[:limit] {
		schema, err := a.tools.InspectSchema(ctx, table)
		if err != nil {
			slog.Debug("Skipping schema", "table", table, "error", err)
			continue
		}
		dbCtx.Schemas[table] = schema
	}

	slog.Debug("Built database context", "tables", len(dbCtx.Tables), "schemas", len(dbCtx.Schemas))
	return dbCtx, nil
}

func (a *Assistant) loadCachedContext(ctx context.Context) bool {
	if a.store == nil {
		return false
	}

	dbCtx, err := a.store.Load(ctx, a.cacheKey)
	if err != nil {
		if !errors.Is(err, contextstore.ErrNotFound) {
			slog.Warn("Failed to load cached database context", "key", a.cacheKey, "error", err)
		}
		return false
	}

	if err := a.store.Refresh(ctx, a.cacheKey, a.cacheTTL); err != nil {
		slog.Warn("Failed to refresh cached database context", "key", a.cacheKey, "error", err)
	}

	slog.Debug("Using cached database context", "key", a.cacheKey, "tables", len(dbCtx.Tables))
	a.dbCtx = dbCtx
	return true
}

func (a *Assistant) saveContext(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Save(ctx, a.cacheKey, a.dbCtx, a.cacheTTL); err != nil {
		slog.Warn("Failed to cache database context", "key", a.cacheKey, "error", err)
	}
}
