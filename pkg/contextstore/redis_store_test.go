package contextstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running Redis; set REDIS_ADDR to enable.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store, err := NewRedisStore(context.Background(), RedisOptions{
		Address: addr,
		Prefix:  "test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "db", testContext(), time.Minute))

	got, err := store.Load(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, testContext().Tables, got.Tables)
	assert.Equal(t, "customers", got.Schemas["customers"].Name)

	require.NoError(t, store.Refresh(ctx, "db", time.Minute))
	require.NoError(t, store.Delete(ctx, "db"))

	_, err = store.Load(ctx, "db")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Refresh(ctx, "db", time.Minute)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}
