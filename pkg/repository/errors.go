package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation  = "23505"
	codeSerialization    = "40001"
	codeDeadlockDetected = "40P01"
	codeLockNotAvailable = "55P03"
)

// MapError translates driver errors into domain errors. No-rows becomes
// notFoundErr. A unique violation becomes duplicateErr, wrapped with the
// violated constraint's name when the server reports one. Anything else is
// returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return notFoundErr
	}

	if pgErr, ok := pgError(err); ok && pgErr.Code == codeUniqueViolation {
		if pgErr.ConstraintName != "" {
			return fmt.Errorf("%w: %s", duplicateErr, pgErr.ConstraintName)
		}
		return duplicateErr
	}
	return err
}

// Retryable reports whether err is a transient concurrency failure that a
// fresh transaction may not hit.
func Retryable(err error) bool {
	pgErr, ok := pgError(err)
	if !ok {
		return false
	}
	switch pgErr.Code {
	case codeSerialization, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
