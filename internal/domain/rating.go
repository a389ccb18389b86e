package domain

import "time"

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Rating represents a single user's rating for a store. There is at most one
// Rating per (UserID, StoreID) pair.
type Rating struct {
	ID        string
	UserID    string
	StoreID   string
	Value     int
	CreatedAt time.Time
	UserName  string
}

// RatingAggregate provides average and count for a store's ratings.
type RatingAggregate struct {
	Average float64
	Count   int
}

// ValidRating reports whether value lies within [MinRating, MaxRating].
func ValidRating(value int) bool {
	return value >= MinRating && value <= MaxRating
}
