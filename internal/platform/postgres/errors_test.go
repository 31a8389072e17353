package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/vocab-drill/internal/platform/postgres"
	"github.com/phrazzld/vocab-drill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		Detail:         "Key (id)=(x) already exists.",
		Hint:           "error hint",
		TableName:      "questions",
		ConstraintName: "questions_pkey",
	}
}

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"unique violation", newPgError("23505"), true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", newPgError("23505")), true},
		{"foreign key violation", newPgError("23503"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, postgres.IsUniqueViolation(tc.err))
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, postgres.MapError(nil, "question", "get", nil))
	})

	t.Run("no rows uses the given sentinel", func(t *testing.T) {
		err := postgres.MapError(sql.ErrNoRows, "question", "get", store.ErrQuestionNotFound)
		assert.ErrorIs(t, err, store.ErrQuestionNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, store.CodeNotFound, store.CodeOf(err))
	})

	t.Run("no rows defaults to ErrNotFound", func(t *testing.T) {
		err := postgres.MapError(sql.ErrNoRows, "progress", "get", nil)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NotErrorIs(t, err, store.ErrQuestionNotFound)
	})

	tests := []struct {
		name     string
		code     string
		sentinel error
	}{
		{"unique violation", "23505", store.ErrDuplicate},
		{"foreign key violation", "23503", store.ErrInvalidEntity},
		{"check violation", "23514", store.ErrInvalidEntity},
		{"not null violation", "23502", store.ErrInvalidEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := postgres.MapError(newPgError(tc.code), "question", "create", nil)

			var storeErr *store.StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tc.code, storeErr.Code)
			assert.Equal(t, "error message", storeErr.Message)
			assert.Equal(t, "Key (id)=(x) already exists.", storeErr.Detail)
			assert.Equal(t, "error hint", storeErr.Hint)
			assert.Equal(t, "question", storeErr.Entity)
			assert.Equal(t, "create", storeErr.Operation)
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}

	t.Run("other sqlstate keeps the code without a sentinel", func(t *testing.T) {
		err := postgres.MapError(newPgError("40001"), "progress", "record", nil)
		assert.Equal(t, "40001", store.CodeOf(err))
		assert.NotErrorIs(t, err, store.ErrDuplicate)
		assert.NotErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		err := postgres.MapError(errors.New("connection reset"), "level", "list", nil)
		assert.Equal(t, store.CodeInternal, store.CodeOf(err))
	})
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(mockResult{rowsAffected: 1}, store.ErrQuestionNotFound))
	assert.ErrorIs(t,
		postgres.CheckRowsAffected(mockResult{rowsAffected: 0}, store.ErrQuestionNotFound),
		store.ErrQuestionNotFound)
	assert.Error(t, postgres.CheckRowsAffected(mockResult{err: errors.New("driver")}, store.ErrNotFound))
	assert.Error(t, postgres.CheckRowsAffected(nil, store.ErrNotFound))
}
