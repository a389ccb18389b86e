package domain

import "time"

// Store is a rateable business. Rating and TotalRatings are derived from the
// rating ledger and only ever written by the aggregation path.
type Store struct {
	ID           string
	Name         string
	Email        string
	Address      string
	OwnerID      string
	Rating       float64
	TotalRatings int
	CreatedAt    time.Time
}

// HasOwner reports whether the store is linked to a store owner account.
func (s Store) HasOwner() bool {
	return s.OwnerID != ""
}

// DashboardStats is the admin overview. TotalUsers excludes administrators.
type DashboardStats struct {
	TotalUsers   int
	TotalStores  int
	TotalRatings int
}
