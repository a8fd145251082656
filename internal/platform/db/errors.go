package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/operate360/operate360/internal/shared"
)

// UniqueViolation is the SQLSTATE raised by unique constraints.
const UniqueViolation = "23505"

// MapError translates driver errors into shared error kinds.
// pgx.ErrNoRows becomes shared.ErrNotFound and unique violations become
// shared.ErrConflict; everything else is returned unchanged.
func MapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolation {
		return shared.ErrConflict
	}
	return err
}
