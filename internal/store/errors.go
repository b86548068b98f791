package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isNoRows reports whether err is either driver's "no rows" sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// postgresUniqueViolation is the SQLSTATE for a unique_violation.
const postgresUniqueViolation = "23505"

// translateUniqueViolation wraps err as ErrDuplicateName if it represents a
// unique-constraint violation on either driver, otherwise returns it
// unchanged.
func translateUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateName, pgErr.ConstraintName)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", ErrDuplicateName, err.Error())
	}
	return err
}
