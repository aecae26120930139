package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 50*time.Millisecond))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, "k")
		return err == nil && !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Defaults(t *testing.T) {
	store := NewMemoryStore(0, 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "zero ttl falls back to the default")
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, store.Set(ctx, "b", 2, time.Minute))
	_, _, _ = store.Get(ctx, "a")
	require.NoError(t, store.Set(ctx, "c", 3, time.Minute))

	_, ok, _ := store.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = store.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(1, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", map[string]any{"n": 1}, time.Minute))

	v, _, _ := store.Get(ctx, "k")
	v.(map[string]any)["n"] = 2

	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, 1, again.(map[string]any)["n"])
}
