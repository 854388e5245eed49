package contextstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traego/mcp-db-assistant/pkg/config"
	"github.com/traego/mcp-db-assistant/pkg/dbtools"
)

func testContext() DatabaseContext {
	return DatabaseContext{
		Tables: []string{"customers", "sales"},
		Schemas: map[string]*dbtools.TableSchema{
			"customers": {
				Name:    "customers",
				Columns: []dbtools.ColumnInfo{{Name: "id", Type: "INTEGER", PrimaryKey: true}},
			},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "a", testContext(), time.Minute))

		got, err := store.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, testContext(), got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))

		err = store.Refresh(ctx, "missing", time.Minute)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("invalid ttl", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, "b", testContext(), 0))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "c", testContext(), time.Minute))
		require.NoError(t, store.Delete(ctx, "c"))
		require.NoError(t, store.Delete(ctx, "c"))

		_, err := store.Load(ctx, "c")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "short", testContext(), 20*time.Millisecond))
	require.NoError(t, store.Save(ctx, "long", testContext(), time.Minute))

	assert.Eventually(t, func() bool {
		_, err := store.Load(ctx, "short")
		return errors.Is(err, ErrNotFound)
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err := store.Load(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryStoreRefresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "k", testContext(), 30*time.Millisecond))
	require.NoError(t, store.Refresh(ctx, "k", time.Minute))

	time.Sleep(50 * time.Millisecond)

	_, err := store.Load(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryStoreCloseTwice(t *testing.T) {
	store := NewMemoryStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	store, err := FromConfig(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = FromConfig(ctx, config.CacheConfig{Enabled: true, TTL: config.Duration(time.Minute)})
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &MemoryStore{}, store)
}
