package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operate360/operate360/internal/platform/db"
)

// Repository defines credential lookups needed by the auth service.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, id int64) (*Credential, error)
	Create(ctx context.Context, in NewCredential) (*Credential, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const credentialColumns = `user_id, username, email, password_hash, role_id, created_at, updated_at`

// FindByEmail fetches a credential by normalised email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+credentialColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("auth: find by email: %w", err)
	}
	return cred, nil
}

// FindByID fetches a credential by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Credential, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+credentialColumns+` FROM users WHERE user_id = $1`, id)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("auth: find by id: %w", err)
	}
	return cred, nil
}

// Create inserts a credential. A duplicate email yields shared.ErrConflict.
func (r *PGRepository) Create(ctx context.Context, in NewCredential) (*Credential, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, role_id)
VALUES ($1, $2, $3, $4)
RETURNING `+credentialColumns, in.Username, in.Email, in.PasswordHash, in.RoleID)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("auth: create credential: %w", err)
	}
	return cred, nil
}

func scanCredential(row pgx.Row) (*Credential, error) {
	var c Credential
	err := row.Scan(&c.UserID, &c.Username, &c.Email, &c.PasswordHash, &c.RoleID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &c, nil
}

var _ Repository = (*PGRepository)(nil)
