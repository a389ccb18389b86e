package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
	"github.com/Clark-Hu/store-ratings/internal/metrics"
)

// Submission is the authoritative result of Submit: the stored rating and the
// store with its recomputed aggregate.
type Submission struct {
	Rating   domain.Rating
	Store    domain.Store
	Inserted bool
	Previous *int
}

// Service exposes the rating ledger and aggregation operations.
type Service struct {
	users     UserDirectory
	ledger    Ledger
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets where post-commit events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides rating id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService wires the ledger service.
func NewService(users UserDirectory, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		users:     users,
		ledger:    ledger,
		publisher: events.Nop{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records userID's rating of storeID. A second submission for the same
// pair overwrites the first in place (same id, new value and timestamp) and
// leaves the store's count unchanged. The store aggregate is recomputed in the
// same unit of work as the write.
func (s *Service) Submit(ctx context.Context, userID, storeID string, value int) (Submission, error) {
	if !domain.ValidRating(value) {
		return Submission{}, fmt.Errorf("%w: rating must be between %d and %d, got %d",
			domain.ErrInvalidValue, domain.MinRating, domain.MaxRating, value)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return Submission{}, fmt.Errorf("user %q: %w", userID, err)
	}

	var sub Submission
	start := time.Now()
	err = s.ledger.WithinStore(ctx, storeID, func(tx StoreTx) error {
		existing, found, err := tx.Rating(ctx, userID)
		if err != nil {
			return err
		}

		rating := domain.Rating{
			ID:        s.newID(),
			UserID:    user.ID,
			StoreID:   storeID,
			Value:     value,
			CreatedAt: s.now().UTC(),
			UserName:  user.Name,
		}
		if found {
			rating.ID = existing.ID
			prev := existing.Value
			sub.Previous = &prev
		}

		saved, err := tx.PutRating(ctx, rating)
		if err != nil {
			return err
		}
		st, err := recompute(ctx, tx)
		if err != nil {
			return err
		}

		sub.Rating = saved
		sub.Store = st
		sub.Inserted = !found
		return nil
	})
	metrics.ObserveUnitOfWork(time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Submission{}, fmt.Errorf("store %q: %w", storeID, err)
		}
		return Submission{}, err
	}

	metrics.RecordSubmission(sub.Inserted)
	s.logger.Debug().
		Str("user_id", userID).
		Str("store_id", storeID).
		Int("rating", value).
		Bool("inserted", sub.Inserted).
		Float64("store_rating", sub.Store.Rating).
		Int("store_total_ratings", sub.Store.TotalRatings).
		Msg("rating submitted")

	s.publish(ctx, events.RatingSubmitted{
		RatingID:          sub.Rating.ID,
		UserID:            sub.Rating.UserID,
		StoreID:           sub.Rating.StoreID,
		Rating:            sub.Rating.Value,
		PreviousRating:    sub.Previous,
		Inserted:          sub.Inserted,
		StoreRating:       sub.Store.Rating,
		StoreTotalRatings: sub.Store.TotalRatings,
		OccurredAt:        sub.Rating.CreatedAt,
	})
	return sub, nil
}

// ForUser lists the ratings submitted by userID in creation order.
func (s *Service) ForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	return s.ledger.RatingsForUser(ctx, userID)
}

// ForStore lists the ratings of storeID in creation order.
func (s *Service) ForStore(ctx context.Context, storeID string) ([]domain.Rating, error) {
	return s.ledger.RatingsForStore(ctx, storeID)
}

// One returns the rating userID gave storeID; ok is false when there is none.
func (s *Service) One(ctx context.Context, userID, storeID string) (domain.Rating, bool, error) {
	r, err := s.ledger.FindRating(ctx, userID, storeID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Rating{}, false, nil
	}
	if err != nil {
		return domain.Rating{}, false, err
	}
	return r, true, nil
}

// All lists every rating in the ledger.
func (s *Service) All(ctx context.Context) ([]domain.Rating, error) {
	return s.ledger.ListRatings(ctx)
}

// publish never fails the caller: the write it reports has already committed.
func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", evt.Name()).Msg("publish event failed")
	}
}
