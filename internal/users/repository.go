package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operate360/operate360/internal/platform/db"
	"github.com/operate360/operate360/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `user_id, username, email, role_id, created_at, updated_at`

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list rows: %w", err)
	}
	return users, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return user, nil
}

// UpdateProfile writes username, email and role. A duplicate email yields
// shared.ErrConflict, a missing row shared.ErrNotFound.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users
SET username = $2, email = $3, role_id = $4, updated_at = now()
WHERE user_id = $1
RETURNING `+userColumns, id, in.Username, in.Email, in.RoleID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("users: update profile: %w", err)
	}
	return user, nil
}

// ReplacePassword locks the user's row, hands the current hash to fn and
// stores the hash fn returns. An error from fn aborts without writing.
func (r *Repository) ReplacePassword(ctx context.Context, id int64, fn func(current string) (string, error)) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT password_hash FROM users WHERE user_id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			return fmt.Errorf("users: lock password: %w", db.MapError(err))
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE user_id = $1`, id, next); err != nil {
			return fmt.Errorf("users: update password: %w", err)
		}
		return nil
	})
}

// DeleteUser removes a user. A missing row yields shared.ErrNotFound.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.RoleID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, db.MapError(err)
	}
	return &u, nil
}

var _ RepositoryPort = (*Repository)(nil)
