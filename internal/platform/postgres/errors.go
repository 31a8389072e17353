package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/vocab-drill/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// MapError converts a database error into a *store.StoreError. SQLSTATE,
// message, detail and hint are copied from PostgreSQL errors and the result
// wraps the matching store sentinel, so callers can use errors.Is.
// notFound is wrapped for sql.ErrNoRows; pass nil to use store.ErrNotFound.
func MapError(err error, entity, operation string, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		if notFound == nil {
			notFound = store.ErrNotFound
		}
		return store.NewStoreError(entity, operation, fmt.Sprintf("%s not found", entity), notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		wrapped := err
		switch pgErr.Code {
		case uniqueViolationCode:
			wrapped = fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case foreignKeyViolationCode, checkViolationCode, notNullViolationCode:
			wrapped = fmt.Errorf("%w: constraint %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
		}
		return &store.StoreError{
			Entity:    entity,
			Operation: operation,
			Code:      pgErr.Code,
			Message:   pgErr.Message,
			Detail:    pgErr.Detail,
			Hint:      pgErr.Hint,
			Err:       wrapped,
		}
	}

	return store.NewStoreError(entity, operation, "database error", err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CheckRowsAffected returns notFound when result reports zero affected rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
