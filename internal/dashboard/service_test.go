package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/store-ratings/internal/cache"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
)

type countingCounter struct {
	calls int
	stats domain.DashboardStats
	err   error
}

func (c *countingCounter) CountStats(context.Context) (domain.DashboardStats, error) {
	c.calls++
	return c.stats, c.err
}

func TestStatsCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{stats: domain.DashboardStats{TotalUsers: 3, TotalStores: 3, TotalRatings: 3}}
	svc := NewService(counter, cache.NewMemory(), time.Minute, zerolog.Nop())

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, counter.stats, first)

	counter.stats.TotalRatings = 4
	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.TotalRatings)
	assert.Equal(t, 1, counter.calls)

	require.NoError(t, svc.Invalidator().Publish(ctx, events.RatingSubmitted{Inserted: true}))
	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.TotalRatings)
	assert.Equal(t, 2, counter.calls)
}

func TestInvalidatorIgnoresCountNeutralEvents(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{}
	svc := NewService(counter, cache.NewMemory(), time.Minute, zerolog.Nop())

	_, err := svc.Stats(ctx)
	require.NoError(t, err)

	inv := svc.Invalidator()
	require.NoError(t, inv.Publish(ctx, events.RatingSubmitted{Inserted: false}))
	require.NoError(t, inv.Publish(ctx, events.StoreAggregateRecomputed{}))
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.calls)

	require.NoError(t, inv.Publish(ctx, events.UserCreated{}))
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)
}

func TestStatsWithoutCache(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{}
	svc := NewService(counter, nil, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := svc.Stats(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, counter.calls)
	assert.NoError(t, svc.Invalidate(ctx))
}

func TestStatsPropagatesCounterError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&countingCounter{err: boom}, cache.NewMemory(), time.Minute, zerolog.Nop())

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, boom)
}

// racingCounter runs during before returning the counts it read.
type racingCounter struct {
	calls  int
	stats  domain.DashboardStats
	during func()
}

func (c *racingCounter) CountStats(context.Context) (domain.DashboardStats, error) {
	c.calls++
	read := c.stats
	if c.during != nil {
		c.during()
		c.during = nil
	}
	return read, nil
}

func TestStatsDoesNotCacheCountsOverlappingAnInvalidation(t *testing.T) {
	ctx := context.Background()
	counter := &racingCounter{stats: domain.DashboardStats{TotalUsers: 3, TotalStores: 3, TotalRatings: 3}}
	svc := NewService(counter, cache.NewMemory(), time.Minute, zerolog.Nop())

	counter.during = func() {
		counter.stats.TotalRatings = 4
		require.NoError(t, svc.Invalidator().Publish(ctx, events.RatingSubmitted{Inserted: true}))
	}
	stale, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stale.TotalRatings)

	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.TotalRatings)
	assert.Equal(t, 2, counter.calls)

	again, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, again.TotalRatings)
	assert.Equal(t, 2, counter.calls)
}

// invalidatingCache runs onSet right after a successful write.
type invalidatingCache struct {
	*cache.Memory
	onSet func()
}

func (c *invalidatingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.Memory.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.onSet != nil {
		c.onSet()
		c.onSet = nil
	}
	return nil
}

func TestStatsDropsValueWrittenAcrossAnInvalidation(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{stats: domain.DashboardStats{TotalRatings: 1}}
	c := &invalidatingCache{Memory: cache.NewMemory()}
	svc := NewService(counter, c, time.Minute, zerolog.Nop())

	// An insert whose cache delete landed just before this write.
	c.onSet = func() {
		counter.stats.TotalRatings = 2
		svc.generation.Add(1)
	}
	_, err := svc.Stats(ctx)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, statsKey)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalRatings)
}
