package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifield/fieldsync/internal/agent/store"
	"github.com/verifield/fieldsync/internal/common"
)

func setupCache(t *testing.T) *Cache {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st.DB())
}

func TestSetGet(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Set replaces the previous value and expiry.
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), time.Minute))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestGet_Missing(t *testing.T) {
	c := setupCache(t)

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGet_LazyExpiry(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	now := int64(1_000_000)
	c.now = func() int64 { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))

	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	// Past the TTL the entry reads as absent even though the row is still
	// physically present.
	now += 2 * time.Second.Milliseconds()
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearExpired(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	now := int64(1_000_000)
	c.now = func() int64 { return now }

	require.NoError(t, c.Set(ctx, "old", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "fresh", []byte("b"), time.Hour))

	now += time.Minute.Milliseconds()

	removed, err := c.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = c.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
