package ratings

import (
	"context"
	"time"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
	"github.com/Clark-Hu/store-ratings/internal/metrics"
)

// Aggregate derives a store's displayed rating from its ledger entries: the
// arithmetic mean rounded half away from zero to one decimal, and the number of
// entries. An empty ledger yields 0.0 and 0. Rounding is done in integer tenths.
func Aggregate(ratings []domain.Rating) domain.RatingAggregate {
	n := len(ratings)
	if n == 0 {
		return domain.RatingAggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	// floor(10*sum/n + 1/2); values are positive so this rounds half away from zero.
	tenths := (20*sum + n) / (2 * n)
	return domain.RatingAggregate{
		Average: float64(tenths) / 10,
		Count:   n,
	}
}

// recompute rebuilds the aggregate of the store held by tx and returns the store
// carrying it. The count is always the number of ledger entries, never adjusted
// incrementally.
func recompute(ctx context.Context, tx StoreTx) (domain.Store, error) {
	entries, err := tx.Ratings(ctx)
	if err != nil {
		return domain.Store{}, err
	}
	agg := Aggregate(entries)
	if err := tx.SetAggregate(ctx, agg); err != nil {
		return domain.Store{}, err
	}
	st := tx.Store()
	st.Rating = agg.Average
	st.TotalRatings = agg.Count
	return st, nil
}

// Recompute re-derives and stores the aggregate of storeID from the ledger.
// It is idempotent.
func (s *Service) Recompute(ctx context.Context, storeID string) (domain.Store, error) {
	var out domain.Store
	start := time.Now()
	err := s.ledger.WithinStore(ctx, storeID, func(tx StoreTx) error {
		st, err := recompute(ctx, tx)
		if err != nil {
			return err
		}
		out = st
		return nil
	})
	metrics.ObserveUnitOfWork(time.Since(start))
	if err != nil {
		return domain.Store{}, err
	}

	s.publish(ctx, events.StoreAggregateRecomputed{
		StoreID:      out.ID,
		Rating:       out.Rating,
		TotalRatings: out.TotalRatings,
		OccurredAt:   s.now().UTC(),
	})
	return out, nil
}
