package contextstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map
type MemoryStore struct {
	entries      map[string]entry
	mu           sync.RWMutex
	cleanupTimer *time.Ticker
	done         chan struct{}
	closeOnce    sync.Once
}

type entry struct {
	dbCtx    DatabaseContext
	expireAt time.Time
}

// NewMemoryStore creates an in-memory store that sweeps expired entries
// every cleanupInterval. A non-positive interval defaults to one minute.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}

	store.cleanupTimer = time.NewTicker(cleanupInterval)
	go store.cleanupExpired()

	slog.Debug("Created in-memory context store")
	return store
}

// cleanupExpired periodically removes expired entries
func (s *MemoryStore) cleanupExpired() {
	for {
		select {
		case <-s.cleanupTimer.C:
			s.mu.Lock()
			now := time.Now()
			for key, e := range s.entries {
				if now.After(e.expireAt) {
					delete(s.entries, key)
					slog.Debug("Removed expired database context", "key", key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			s.cleanupTimer.Stop()
			return
		}
	}
}

// Save stores dbCtx under key for ttl
func (s *MemoryStore) Save(ctx context.Context, key string, dbCtx DatabaseContext, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s for %s", ttl, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		dbCtx:    dbCtx,
		expireAt: time.Now().Add(ttl),
	}

	slog.Debug("Saved database context", "key", key, "tables", len(dbCtx.Tables), "ttl", ttl)
	return nil
}

// Load retrieves the context stored under key
func (s *MemoryStore) Load(ctx context.Context, key string) (DatabaseContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expireAt) {
		return DatabaseContext{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return e.dbCtx, nil
}

// Refresh extends the TTL of key
func (s *MemoryStore) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expireAt) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	e.expireAt = time.Now().Add(ttl)
	s.entries[key] = e

	slog.Debug("Refreshed database context", "key", key, "ttl", ttl)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

var _ Store = (*MemoryStore)(nil)
