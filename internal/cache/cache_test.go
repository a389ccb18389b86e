package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "stats", []byte(`{"a":1}`), time.Minute))

	val, ok, err := c.Get(ctx, "stats")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(val))

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "stats")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after ttl")
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a", "missing"))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	val, ok, _ := c.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", string(val))
}

func TestRedisKeyPrefix(t *testing.T) {
	r := &Redis{prefix: "ratings"}
	assert.Equal(t, "ratings:dashboard", r.key("dashboard"))
	assert.Equal(t, "dashboard", (&Redis{}).key("dashboard"))
}
