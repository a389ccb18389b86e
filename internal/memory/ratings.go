package memory

import (
	"context"
	"errors"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/ratings"
)

var (
	_ ratings.Ledger        = (*DB)(nil)
	_ ratings.UserDirectory = (*DB)(nil)
)

// WithinStore runs fn under the store's lock. Writes are staged on the
// transaction and applied in one step under the data lock when fn succeeds.
func (db *DB) WithinStore(ctx context.Context, storeID string, fn func(tx ratings.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer db.lockStore(storeID)()

	db.mu.RLock()
	st, ok := db.stores[storeID]
	db.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	tx := &storeTx{db: db, store: st, staged: make(map[string]domain.Rating)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

// RatingsForUser returns domain.ErrNotFound for unknown users.
func (db *DB) RatingsForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.users[userID]; !ok {
		return nil, domain.ErrNotFound
	}
	return db.collectLocked(db.byUser[userID]), nil
}

// RatingsForStore returns domain.ErrNotFound for unknown stores.
func (db *DB) RatingsForStore(ctx context.Context, storeID string) ([]domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.stores[storeID]; !ok {
		return nil, domain.ErrNotFound
	}
	return db.collectLocked(db.byStore[storeID]), nil
}

func (db *DB) FindRating(ctx context.Context, userID, storeID string) (domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rating{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	id, ok := db.byPair[pairKey{userID: userID, storeID: storeID}]
	if !ok {
		return domain.Rating{}, domain.ErrNotFound
	}
	return db.ratings[id], nil
}

func (db *DB) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.collectLocked(db.ratingOrder), nil
}

func (db *DB) collectLocked(ids []string) []domain.Rating {
	out := make([]domain.Rating, 0, len(ids))
	for _, id := range ids {
		out = append(out, db.ratings[id])
	}
	return out
}

type storeTx struct {
	db    *DB
	store domain.Store

	staged      map[string]domain.Rating // by user id
	stagedOrder []string
	agg         *domain.RatingAggregate
}

func (tx *storeTx) Store() domain.Store {
	return tx.store
}

func (tx *storeTx) Rating(ctx context.Context, userID string) (domain.Rating, bool, error) {
	if r, ok := tx.staged[userID]; ok {
		return r, true, nil
	}
	r, err := tx.db.FindRating(ctx, userID, tx.store.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Rating{}, false, nil
	}
	if err != nil {
		return domain.Rating{}, false, err
	}
	return r, true, nil
}

func (tx *storeTx) Ratings(ctx context.Context) ([]domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx.db.mu.RLock()
	committed := tx.db.collectLocked(tx.db.byStore[tx.store.ID])
	tx.db.mu.RUnlock()

	out := make([]domain.Rating, 0, len(committed)+len(tx.staged))
	seen := make(map[string]bool, len(committed))
	for _, r := range committed {
		if s, ok := tx.staged[r.UserID]; ok {
			r = s
		}
		seen[r.UserID] = true
		out = append(out, r)
	}
	for _, userID := range tx.stagedOrder {
		if !seen[userID] {
			out = append(out, tx.staged[userID])
		}
	}
	return out, nil
}

func (tx *storeTx) PutRating(ctx context.Context, r domain.Rating) (domain.Rating, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rating{}, err
	}
	r.StoreID = tx.store.ID
	if existing, found, err := tx.Rating(ctx, r.UserID); err != nil {
		return domain.Rating{}, err
	} else if found {
		r.ID = existing.ID
	}
	if _, ok := tx.staged[r.UserID]; !ok {
		tx.stagedOrder = append(tx.stagedOrder, r.UserID)
	}
	tx.staged[r.UserID] = r
	return r, nil
}

func (tx *storeTx) SetAggregate(ctx context.Context, agg domain.RatingAggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.agg = &agg
	return nil
}

func (tx *storeTx) commit() error {
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	st, ok := db.stores[tx.store.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, userID := range tx.stagedOrder {
		if _, ok := db.users[userID]; !ok {
			return domain.ErrNotFound
		}
	}

	for _, userID := range tx.stagedOrder {
		r := tx.staged[userID]
		key := pairKey{userID: userID, storeID: st.ID}
		if id, exists := db.byPair[key]; exists {
			r.ID = id
			db.ratings[id] = r
			continue
		}
		db.ratings[r.ID] = r
		db.byPair[key] = r.ID
		db.byStore[st.ID] = append(db.byStore[st.ID], r.ID)
		db.byUser[userID] = append(db.byUser[userID], r.ID)
		db.ratingOrder = append(db.ratingOrder, r.ID)
	}
	if tx.agg != nil {
		st.Rating = tx.agg.Average
		st.TotalRatings = tx.agg.Count
		db.stores[st.ID] = st
	}
	return nil
}
