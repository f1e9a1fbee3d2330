package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueryCache_GetSet(t *testing.T) {
	c := NewQueryCache(DefaultTTL, zap.NewNop())

	_, ok := c.Get("orders_recent", 0)
	assert.False(t, ok)

	c.Set("orders_recent", []int{1, 2, 3})
	value, ok := c.Get("orders_recent", 0)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, value)
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := NewQueryCache(DefaultTTL, zap.NewNop())
	c.Set("order_detail_7", "cached")

	// Young entry served under a generous TTL.
	_, ok := c.Get("order_detail_7", time.Minute)
	assert.True(t, ok)

	// The same entry is expired under a tiny TTL and gets dropped.
	time.Sleep(2 * time.Millisecond)
	_, ok = c.Get("order_detail_7", time.Millisecond)
	assert.False(t, ok)

	// Dropped for real: a follow-up read with a long TTL misses too.
	_, ok = c.Get("order_detail_7", time.Minute)
	assert.False(t, ok)
}

func TestQueryCache_InvalidateSubstring(t *testing.T) {
	c := NewQueryCache(DefaultTTL, zap.NewNop())
	c.Set("order_detail_1", "a")
	c.Set("order_detail_2", "b")
	c.Set("companies_all", "c")

	c.Invalidate("order_detail")

	_, ok := c.Get("order_detail_1", 0)
	assert.False(t, ok)
	_, ok = c.Get("order_detail_2", 0)
	assert.False(t, ok)
	_, ok = c.Get("companies_all", 0)
	assert.True(t, ok)
}

func TestQueryCache_InvalidateAll(t *testing.T) {
	c := NewQueryCache(DefaultTTL, zap.NewNop())
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("")

	_, _, size := c.Stats()
	assert.Equal(t, 0, size)
}

func TestQueryCache_Stats(t *testing.T) {
	c := NewQueryCache(DefaultTTL, zap.NewNop())
	c.Set("k", "v")

	c.Get("k", 0)
	c.Get("k", 0)
	c.Get("missing", 0)

	hits, misses, size := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, size)
}
