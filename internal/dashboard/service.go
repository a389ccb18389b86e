// Package dashboard serves the admin totals, optionally through a cache.
package dashboard

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/internal/cache"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
)

const statsKey = "dashboard:stats"

// Counter computes the totals from the backend.
type Counter interface {
	CountStats(ctx context.Context) (domain.DashboardStats, error)
}

// Service answers dashboard queries.
type Service struct {
	counter Counter
	cache   cache.Cache
	ttl     time.Duration
	logger  zerolog.Logger

	// generation is bumped by every Invalidate. A Stats call only keeps the
	// value it cached if no invalidation ran while it was counting.
	generation atomic.Uint64
}

// NewService returns a dashboard service. A nil cache or a zero ttl disables caching.
func NewService(counter Counter, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{counter: counter, cache: c, ttl: ttl, logger: logger}
}

type cachedStats struct {
	TotalUsers   int `json:"totalUsers"`
	TotalStores  int `json:"totalStores"`
	TotalRatings int `json:"totalRatings"`
}

// Stats returns the number of non-admin users, stores and ratings. Cache
// failures fall through to the backend.
func (s *Service) Stats(ctx context.Context) (domain.DashboardStats, error) {
	if s.cacheEnabled() {
		if raw, ok, err := s.cache.Get(ctx, statsKey); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard cache read failed")
		} else if ok {
			var c cachedStats
			if err := json.Unmarshal(raw, &c); err == nil {
				return domain.DashboardStats(c), nil
			}
		}
	}

	gen := s.generation.Load()
	stats, err := s.counter.CountStats(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	if s.cacheEnabled() {
		s.store(ctx, gen, stats)
	}
	return stats, nil
}

// store caches stats counted at generation gen, and takes them back out if
// an invalidation overlapped the count or the write.
func (s *Service) store(ctx context.Context, gen uint64, stats domain.DashboardStats) {
	if s.generation.Load() != gen {
		return
	}
	raw, _ := json.Marshal(cachedStats(stats))
	if err := s.cache.Set(ctx, statsKey, raw, s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard cache write failed")
		return
	}
	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx, statsKey); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard cache delete failed")
		}
	}
}

// Invalidate drops the cached totals.
func (s *Service) Invalidate(ctx context.Context) error {
	if !s.cacheEnabled() {
		return nil
	}
	s.generation.Add(1)
	return s.cache.Delete(ctx, statsKey)
}

// Invalidator returns a publisher that drops the cached totals whenever an
// event changes one of the counts.
func (s *Service) Invalidator() events.Publisher {
	return events.Func(func(ctx context.Context, evt events.Event) error {
		switch e := evt.(type) {
		case events.RatingSubmitted:
			if !e.Inserted {
				return nil
			}
		case events.StoreCreated, events.StoreDeleted, events.UserCreated, events.UserDeleted:
		default:
			return nil
		}
		return s.Invalidate(ctx)
	})
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
