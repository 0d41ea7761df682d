package db

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by the table store when no stored table or load
// event matches the lookup.
var ErrNotFound = errors.New("stored table not found")

// IsNotFound reports whether err means a lookup in the table store came back
// empty. Driver errors that escaped the repositories count too, so callers
// never need to know which backend is configured.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, pgx.ErrNoRows)
}
