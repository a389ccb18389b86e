package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// UsersRepository provides persistence helpers for user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    name,
    email,
    address,
    role,
    COALESCE(store_id, ''),
    password_hash,
    created_at
`

var userSortColumns = map[domain.UserSortField]string{
	domain.SortByName:    "lower(name)",
	domain.SortByEmail:   "lower(email)",
	domain.SortByAddress: "lower(address)",
	domain.SortByRole:    "role",
}

// FindUserByID fetches a user by identifier.
func (r *UsersRepository) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	return u, translate(err)
}

// FindUserByEmail matches the email case-insensitively.
func (r *UsersRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns)
	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	return u, translate(err)
}

// CreateUser inserts a new account; a duplicate email yields domain.ErrConflict.
func (r *UsersRepository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (id, name, email, address, role, store_id, password_hash, created_at)
        VALUES ($1,$2,$3,$4,$5,NULLIF($6, ''),$7,$8)
        RETURNING %s
    `, userColumns)

	row := r.pool.QueryRow(ctx, query, u.ID, u.Name, u.Email, u.Address, u.Role.String(), u.StoreID, u.PasswordHash, u.CreatedAt)
	created, err := scanUser(row)
	return created, translate(err)
}

// UpdatePassword replaces the stored password hash.
func (r *UsersRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteUser removes an account. Users referenced by ratings or stores cannot
// be deleted and yield domain.ErrConflict.
func (r *UsersRepository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user still has ratings or owns a store", domain.ErrConflict)
		}
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListUsers returns users matching filters, ordered by the requested column.
func (r *UsersRepository) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s OR address ILIKE %s)", p, p, p))
	}
	if filter.Role != nil {
		where = append(where, fmt.Sprintf("role = %s", arg(filter.Role.String())))
	}

	column, ok := userSortColumns[filter.SortBy]
	if !ok {
		column = userSortColumns[domain.SortByName]
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(userColumns)
	queryBuilder.WriteString(" FROM users")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, created_at ASC, id ASC", column, direction))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Address,
		&role,
		&u.StoreID,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role, err = domain.ParseRole(role); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
