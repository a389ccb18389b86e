package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// ListStores returns stores in creation order, optionally narrowed to those
// whose name or address contains query (case-insensitive).
func (db *DB) ListStores(ctx context.Context, query string) ([]domain.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.Store, 0, len(db.storeOrder))
	for _, id := range db.storeOrder {
		st := db.stores[id]
		if q != "" &&
			!strings.Contains(strings.ToLower(st.Name), q) &&
			!strings.Contains(strings.ToLower(st.Address), q) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// FindStoreByID returns domain.ErrNotFound for unknown ids.
func (db *DB) FindStoreByID(ctx context.Context, id string) (domain.Store, error) {
	if err := ctx.Err(); err != nil {
		return domain.Store{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	st, ok := db.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrNotFound
	}
	return st, nil
}

// CreateStore stores st with a zero aggregate and links its owner, if any.
func (db *DB) CreateStore(ctx context.Context, st domain.Store) (domain.Store, error) {
	if err := ctx.Err(); err != nil {
		return domain.Store{}, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.stores[st.ID]; exists {
		return domain.Store{}, fmt.Errorf("%w: store id %q already exists", domain.ErrConflict, st.ID)
	}
	st.Rating = 0
	st.TotalRatings = 0
	if st.HasOwner() {
		if err := db.linkOwnerLocked(st.ID, st.OwnerID); err != nil {
			return domain.Store{}, err
		}
	}
	db.stores[st.ID] = st
	db.storeOrder = append(db.storeOrder, st.ID)
	return st, nil
}

// AssignStoreOwner makes ownerID the owner of storeID; an empty ownerID
// removes the current owner.
func (db *DB) AssignStoreOwner(ctx context.Context, storeID, ownerID string) (domain.Store, error) {
	if err := ctx.Err(); err != nil {
		return domain.Store{}, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	st, ok := db.stores[storeID]
	if !ok {
		return domain.Store{}, domain.ErrNotFound
	}
	if st.OwnerID == ownerID {
		return st, nil
	}
	if ownerID != "" {
		if err := db.linkOwnerLocked(storeID, ownerID); err != nil {
			return domain.Store{}, err
		}
	}
	db.unlinkOwnerLocked(st.OwnerID)
	st.OwnerID = ownerID
	db.stores[storeID] = st
	return st, nil
}

// DeleteStore refuses with domain.ErrConflict while the store has ratings.
func (db *DB) DeleteStore(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer db.lockStore(id)()

	db.mu.Lock()
	defer db.mu.Unlock()
	st, ok := db.stores[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n := len(db.byStore[id]); n > 0 {
		return fmt.Errorf("%w: store has %d ratings", domain.ErrConflict, n)
	}
	db.unlinkOwnerLocked(st.OwnerID)
	delete(db.stores, id)
	delete(db.byStore, id)
	db.storeOrder = removeID(db.storeOrder, id)
	return nil
}

func (db *DB) linkOwnerLocked(storeID, ownerID string) error {
	owner, ok := db.users[ownerID]
	if !ok {
		return fmt.Errorf("owner %q: %w", ownerID, domain.ErrNotFound)
	}
	if owner.StoreID != "" && owner.StoreID != storeID {
		return fmt.Errorf("%w: owner already linked to store %q", domain.ErrConflict, owner.StoreID)
	}
	owner.StoreID = storeID
	db.users[ownerID] = owner
	return nil
}

func (db *DB) unlinkOwnerLocked(ownerID string) {
	if ownerID == "" {
		return
	}
	if owner, ok := db.users[ownerID]; ok {
		owner.StoreID = ""
		db.users[ownerID] = owner
	}
}
