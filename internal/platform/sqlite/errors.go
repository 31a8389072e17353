package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/phrazzld/vocab-drill/internal/store"
)

// MapError converts a database error into a *store.StoreError. Constraint
// failures wrap store.ErrDuplicate or store.ErrInvalidEntity and carry the
// extended result code, e.g. "sqlite:2067" for a unique violation.
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

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		wrapped := err
		if sqErr.Code == sqlite3.ErrConstraint {
			switch sqErr.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				wrapped = fmt.Errorf("%w: %v", store.ErrDuplicate, err)
			default:
				wrapped = fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
			}
		}
		return &store.StoreError{
			Entity:    entity,
			Operation: operation,
			Code:      fmt.Sprintf("sqlite:%d", int(sqErr.ExtendedCode)),
			Message:   sqErr.Code.Error(),
			Detail:    sqErr.Error(),
			Err:       wrapped,
		}
	}

	return store.NewStoreError(entity, operation, "database error", err)
}
