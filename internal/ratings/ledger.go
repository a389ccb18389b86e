// Package ratings owns the rating ledger and the store aggregate derived from it.
//
// Every write to a store's ratings runs inside a store-scoped unit of work
// provided by a Ledger backend; the aggregate for that store is recomputed from
// the ledger in the same unit, so readers observe either the state before a
// submission or the state after it together with the new aggregate.
package ratings

import (
	"context"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// UserDirectory resolves users for existence checks and the denormalised name.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (domain.User, error)
}

// StoreTx is the view of one store available inside a unit of work. Writes made
// through it become visible to other readers only when the unit commits.
type StoreTx interface {
	// Store is the store as it was when the unit of work started.
	Store() domain.Store
	// Rating returns the rating of userID for this store, staged writes included.
	Rating(ctx context.Context, userID string) (domain.Rating, bool, error)
	// Ratings lists every rating of this store, staged writes included.
	Ratings(ctx context.Context) ([]domain.Rating, error)
	// PutRating inserts the rating, or overwrites value, timestamp and user
	// name of the existing rating for the same user. The stored record is returned.
	PutRating(ctx context.Context, rating domain.Rating) (domain.Rating, error)
	// SetAggregate writes the store's derived rating and count.
	SetAggregate(ctx context.Context, agg domain.RatingAggregate) error
}

// Ledger stores Rating records and serialises units of work per store.
type Ledger interface {
	// WithinStore runs fn while holding exclusive write access to the store's
	// ratings. It fails with domain.ErrNotFound when the store does not exist.
	// The unit commits if fn returns nil and is discarded otherwise.
	WithinStore(ctx context.Context, storeID string, fn func(tx StoreTx) error) error
	// RatingsForUser lists a user's ratings in creation order.
	RatingsForUser(ctx context.Context, userID string) ([]domain.Rating, error)
	// RatingsForStore lists a store's ratings in creation order.
	RatingsForStore(ctx context.Context, storeID string) ([]domain.Rating, error)
	// FindRating returns domain.ErrNotFound when the pair has no rating.
	FindRating(ctx context.Context, userID, storeID string) (domain.Rating, error)
	// ListRatings returns every rating in creation order.
	ListRatings(ctx context.Context) ([]domain.Rating, error)
}
