package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// FindUserByID returns domain.ErrNotFound for unknown ids.
func (db *DB) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// FindUserByEmail matches case-insensitively.
func (db *DB) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	id, ok := db.emails[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return db.users[id], nil
}

// CreateUser stores u, failing with domain.ErrConflict on a duplicate id or email.
func (db *DB) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := db.emails[key]; exists {
		return domain.User{}, fmt.Errorf("%w: email already exists", domain.ErrConflict)
	}
	if _, exists := db.users[u.ID]; exists {
		return domain.User{}, fmt.Errorf("%w: user id %q already exists", domain.ErrConflict, u.ID)
	}
	db.users[u.ID] = u
	db.emails[key] = u.ID
	db.userOrder = append(db.userOrder, u.ID)
	return u, nil
}

// UpdatePassword replaces the stored hash.
func (db *DB) UpdatePassword(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	db.users[id] = u
	return nil
}

// DeleteUser refuses with domain.ErrConflict while the user has ratings or owns a store.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if len(db.byUser[id]) > 0 {
		return fmt.Errorf("%w: user has %d ratings", domain.ErrConflict, len(db.byUser[id]))
	}
	for _, st := range db.stores {
		if st.OwnerID == id {
			return fmt.Errorf("%w: user owns store %q", domain.ErrConflict, st.ID)
		}
	}
	delete(db.users, id)
	delete(db.emails, strings.ToLower(u.Email))
	db.userOrder = removeID(db.userOrder, id)
	return nil
}

// ListUsers filters and sorts users. Ties keep creation order.
func (db *DB) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.RLock()
	out := make([]domain.User, 0, len(db.userOrder))
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	for _, id := range db.userOrder {
		u := db.users[id]
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(strings.ToLower(u.Address), q) {
			continue
		}
		out = append(out, u)
	}
	db.mu.RUnlock()

	key := sortKey(filter.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := key(out[i]), key(out[j])
		if filter.Descending {
			return a > b
		}
		return a < b
	})
	return out, nil
}

func sortKey(field domain.UserSortField) func(domain.User) string {
	switch field {
	case domain.SortByEmail:
		return func(u domain.User) string { return strings.ToLower(u.Email) }
	case domain.SortByAddress:
		return func(u domain.User) string { return strings.ToLower(u.Address) }
	case domain.SortByRole:
		return func(u domain.User) string { return u.Role.String() }
	default:
		return func(u domain.User) string { return strings.ToLower(u.Name) }
	}
}
