// Package memory is an in-process backend holding users, stores and the
// rating ledger in indexed maps. A DB is safe for concurrent use.
package memory

import (
	"context"
	"sync"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

type pairKey struct {
	userID  string
	storeID string
}

// DB owns every record. Readers take mu for reading; writers take it for
// writing only while applying a change. Units of work on one store are
// additionally serialised by that store's lock.
type DB struct {
	mu sync.RWMutex

	users      map[string]domain.User
	emails     map[string]string // lower-cased email -> user id
	userOrder  []string
	stores     map[string]domain.Store
	storeOrder []string

	ratings     map[string]domain.Rating // by id
	byPair      map[pairKey]string
	byStore     map[string][]string
	byUser      map[string][]string
	ratingOrder []string

	locksMu    sync.Mutex
	storeLocks map[string]*storeLock
}

// storeLock is a per-store mutex that lives only while someone holds or
// waits for it.
type storeLock struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty database.
func New() *DB {
	return &DB{
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
		stores:     make(map[string]domain.Store),
		ratings:    make(map[string]domain.Rating),
		byPair:     make(map[pairKey]string),
		byStore:    make(map[string][]string),
		byUser:     make(map[string][]string),
		storeLocks: make(map[string]*storeLock),
	}
}

// HealthCheck always succeeds; it lets DB stand in for a database handle.
func (db *DB) HealthCheck(context.Context) error {
	return nil
}

// CountStats returns the dashboard totals.
func (db *DB) CountStats(ctx context.Context) (domain.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.DashboardStats{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()

	stats := domain.DashboardStats{
		TotalStores:  len(db.stores),
		TotalRatings: len(db.ratings),
	}
	for _, u := range db.users {
		if u.Role != domain.RoleAdmin {
			stats.TotalUsers++
		}
	}
	return stats, nil
}

// lockStore blocks until the caller holds storeID's lock and returns the
// matching unlock.
func (db *DB) lockStore(storeID string) (unlock func()) {
	db.locksMu.Lock()
	l, ok := db.storeLocks[storeID]
	if !ok {
		l = &storeLock{}
		db.storeLocks[storeID] = l
	}
	l.refs++
	db.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		db.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(db.storeLocks, storeID)
		}
		db.locksMu.Unlock()
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
