package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// StoresRepository provides persistence helpers for stores.
type StoresRepository struct {
	pool *pgxpool.Pool
}

const storeColumns = `
    id,
    name,
    email,
    address,
    COALESCE(owner_id, ''),
    rating,
    total_ratings,
    created_at
`

// ListStores returns stores in creation order. A non-empty query matches name
// or address case-insensitively.
func (r *StoresRepository) ListStores(ctx context.Context, query string) ([]domain.Store, error) {
	sql := fmt.Sprintf(`SELECT %s FROM stores`, storeColumns)
	args := make([]interface{}, 0, 1)
	if q := strings.TrimSpace(query); q != "" {
		sql += ` WHERE name ILIKE $1 OR address ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	sql += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

// FindStoreByID fetches a store by identifier.
func (r *StoresRepository) FindStoreByID(ctx context.Context, id string) (domain.Store, error) {
	sql := fmt.Sprintf(`SELECT %s FROM stores WHERE id = $1`, storeColumns)
	st, err := scanStore(r.pool.QueryRow(ctx, sql, id))
	return st, translate(err)
}

// CreateStore inserts st with an empty aggregate and links its owner.
func (r *StoresRepository) CreateStore(ctx context.Context, st domain.Store) (domain.Store, error) {
	var created domain.Store
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		insert := fmt.Sprintf(`
            INSERT INTO stores (id, name, email, address, owner_id, rating, total_ratings, created_at)
            VALUES ($1,$2,$3,$4,NULLIF($5, ''),0,0,$6)
            RETURNING %s
        `, storeColumns)
		var err error
		created, err = scanStore(tx.QueryRow(ctx, insert, st.ID, st.Name, st.Email, st.Address, st.OwnerID, st.CreatedAt))
		if err != nil {
			return translate(err)
		}
		if created.HasOwner() {
			return linkOwner(ctx, tx, created.ID, created.OwnerID)
		}
		return nil
	})
	if err != nil {
		return domain.Store{}, err
	}
	return created, nil
}

// AssignStoreOwner makes ownerID the owner of storeID; an empty ownerID
// removes the current owner.
func (r *StoresRepository) AssignStoreOwner(ctx context.Context, storeID, ownerID string) (domain.Store, error) {
	var updated domain.Store
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if current.OwnerID == ownerID {
			updated = current
			return nil
		}
		if current.HasOwner() {
			if _, err := tx.Exec(ctx, `UPDATE users SET store_id = NULL WHERE id = $1`, current.OwnerID); err != nil {
				return err
			}
		}
		sql := fmt.Sprintf(`UPDATE stores SET owner_id = NULLIF($2, '') WHERE id = $1 RETURNING %s`, storeColumns)
		updated, err = scanStore(tx.QueryRow(ctx, sql, storeID, ownerID))
		if err != nil {
			return translate(err)
		}
		if ownerID != "" {
			return linkOwner(ctx, tx, storeID, ownerID)
		}
		return nil
	})
	if err != nil {
		return domain.Store{}, err
	}
	return updated, nil
}

// DeleteStore removes a store without ratings; otherwise domain.ErrConflict.
func (r *StoresRepository) DeleteStore(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockStore(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.HasOwner() {
			if _, err := tx.Exec(ctx, `UPDATE users SET store_id = NULL WHERE id = $1`, current.OwnerID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: store has ratings", domain.ErrConflict)
			}
			return translate(err)
		}
		return nil
	})
}

// CountStats returns the dashboard totals. Administrators are not counted as users.
func (r *StoresRepository) CountStats(ctx context.Context) (domain.DashboardStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM users WHERE role <> 'admin')::int8,
            (SELECT COUNT(*) FROM stores)::int8,
            (SELECT COUNT(*) FROM ratings)::int8
    `
	var users, stores, ratings int64
	if err := r.pool.QueryRow(ctx, query).Scan(&users, &stores, &ratings); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count stats: %w", err)
	}
	return domain.DashboardStats{
		TotalUsers:   int(users),
		TotalStores:  int(stores),
		TotalRatings: int(ratings),
	}, nil
}

func lockStore(ctx context.Context, tx pgx.Tx, id string) (domain.Store, error) {
	sql := fmt.Sprintf(`SELECT %s FROM stores WHERE id = $1 FOR UPDATE`, storeColumns)
	st, err := scanStore(tx.QueryRow(ctx, sql, id))
	return st, translate(err)
}

// linkOwner points the owner's account at storeID. An owner already linked to
// another store yields domain.ErrConflict.
func linkOwner(ctx context.Context, tx pgx.Tx, storeID, ownerID string) error {
	var linked string
	err := tx.QueryRow(ctx, `SELECT COALESCE(store_id, '') FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&linked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("owner %q: %w", ownerID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if linked != "" && linked != storeID {
		return fmt.Errorf("%w: owner already linked to store %q", domain.ErrConflict, linked)
	}
	_, err = tx.Exec(ctx, `UPDATE users SET store_id = $2 WHERE id = $1`, ownerID, storeID)
	return err
}

func scanStore(row pgx.Row) (domain.Store, error) {
	var st domain.Store
	err := row.Scan(
		&st.ID,
		&st.Name,
		&st.Email,
		&st.Address,
		&st.OwnerID,
		&st.Rating,
		&st.TotalRatings,
		&st.CreatedAt,
	)
	return st, err
}
