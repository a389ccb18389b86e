package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/ratings"
)

var (
	_ ratings.Ledger        = (*RatingsRepository)(nil)
	_ ratings.UserDirectory = (*UsersRepository)(nil)
)

// RatingsRepository is the PostgreSQL rating ledger.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `
    id,
    user_id,
    store_id,
    rating,
    created_at,
    user_name
`

// WithinStore runs fn in a transaction holding a row lock on the store, so
// units of work on the same store are serialised. The transaction commits only
// if fn returns nil.
func (r *RatingsRepository) WithinStore(ctx context.Context, storeID string, fn func(tx ratings.StoreTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		st, err := lockStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		return fn(&storeTx{tx: tx, store: st})
	})
}

// RatingsForUser returns domain.ErrNotFound for unknown users.
func (r *RatingsRepository) RatingsForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	if err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`SELECT %s FROM ratings WHERE user_id = $1 ORDER BY seq`, ratingColumns)
	return queryRatings(ctx, r.pool, sql, userID)
}

// RatingsForStore returns domain.ErrNotFound for unknown stores.
func (r *RatingsRepository) RatingsForStore(ctx context.Context, storeID string) ([]domain.Rating, error) {
	if err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, storeID); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`SELECT %s FROM ratings WHERE store_id = $1 ORDER BY seq`, ratingColumns)
	return queryRatings(ctx, r.pool, sql, storeID)
}

// FindRating retrieves the rating a user gave a store.
func (r *RatingsRepository) FindRating(ctx context.Context, userID, storeID string) (domain.Rating, error) {
	sql := fmt.Sprintf(`SELECT %s FROM ratings WHERE user_id = $1 AND store_id = $2`, ratingColumns)
	rating, err := scanRating(r.pool.QueryRow(ctx, sql, userID, storeID))
	return rating, translate(err)
}

// ListRatings returns the whole ledger in creation order.
func (r *RatingsRepository) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	sql := fmt.Sprintf(`SELECT %s FROM ratings ORDER BY seq`, ratingColumns)
	return queryRatings(ctx, r.pool, sql)
}

func (r *RatingsRepository) exists(ctx context.Context, sql, id string) error {
	var ok bool
	if err := r.pool.QueryRow(ctx, sql, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRatings(ctx context.Context, q querier, sql string, args ...any) ([]domain.Rating, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.UserID,
		&rating.StoreID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UserName,
	)
	return rating, err
}

// storeTx is a ratings.StoreTx over a pgx transaction holding the store lock.
type storeTx struct {
	tx    pgx.Tx
	store domain.Store
}

func (t *storeTx) Store() domain.Store {
	return t.store
}

func (t *storeTx) Rating(ctx context.Context, userID string) (domain.Rating, bool, error) {
	sql := fmt.Sprintf(`SELECT %s FROM ratings WHERE store_id = $1 AND user_id = $2`, ratingColumns)
	rating, err := scanRating(t.tx.QueryRow(ctx, sql, t.store.ID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Rating{}, false, nil
	}
	if err != nil {
		return domain.Rating{}, false, err
	}
	return rating, true, nil
}

func (t *storeTx) Ratings(ctx context.Context) ([]domain.Rating, error) {
	sql := fmt.Sprintf(`SELECT %s FROM ratings WHERE store_id = $1 ORDER BY seq`, ratingColumns)
	return queryRatings(ctx, t.tx, sql, t.store.ID)
}

// PutRating upserts on (user_id, store_id); an existing row keeps its id and
// position in the ledger.
func (t *storeTx) PutRating(ctx context.Context, rating domain.Rating) (domain.Rating, error) {
	sql := fmt.Sprintf(`
        INSERT INTO ratings (id, user_id, store_id, rating, user_name, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id, store_id)
        DO UPDATE SET rating = EXCLUDED.rating, user_name = EXCLUDED.user_name, created_at = EXCLUDED.created_at
        RETURNING %s
    `, ratingColumns)

	saved, err := scanRating(t.tx.QueryRow(ctx, sql,
		rating.ID, rating.UserID, t.store.ID, rating.Value, rating.UserName, rating.CreatedAt))
	if err != nil {
		return domain.Rating{}, translate(err)
	}
	return saved, nil
}

func (t *storeTx) SetAggregate(ctx context.Context, agg domain.RatingAggregate) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stores SET rating = $2, total_ratings = $3 WHERE id = $1`,
		t.store.ID, agg.Average, agg.Count)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
