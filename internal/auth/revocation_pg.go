package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRegistry persists revocations in the revoked_tokens table so they survive
// restarts. Expired rows are removed by Purge, driven by the worker.
type PGRegistry struct {
	pool *pgxpool.Pool
}

// NewPGRegistry constructs a PostgreSQL backed registry.
func NewPGRegistry(pool *pgxpool.Pool) *PGRegistry {
	return &PGRegistry{pool: pool}
}

// Revoke upserts the token, keeping the later expiry.
func (r *PGRegistry) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	const query = `INSERT INTO revoked_tokens (token_hash, expires_at)
VALUES ($1, $2)
ON CONFLICT (token_hash) DO UPDATE SET expires_at = GREATEST(revoked_tokens.expires_at, EXCLUDED.expires_at)`
	if _, err := r.pool.Exec(ctx, query, tokenKey(token), expiresAt.UTC()); err != nil {
		return fmt.Errorf("auth: pg revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether an unexpired row exists for token.
func (r *PGRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1 AND expires_at > now())`
	var revoked bool
	if err := r.pool.QueryRow(ctx, query, tokenKey(token)).Scan(&revoked); err != nil {
		return false, fmt.Errorf("auth: pg is revoked: %w", err)
	}
	return revoked, nil
}

// Purge deletes rows whose token expired at or before the cutoff.
func (r *PGRegistry) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("auth: pg purge revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ RevocationRegistry = (*PGRegistry)(nil)
