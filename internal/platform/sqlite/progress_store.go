package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/store"
)

const progressColumns = `user_id, question_id, level_id, category_id, status, attempts,
	last_attempted_at, COALESCE(last_answer, '') AS last_answer`

// SQLiteProgressStore implements store.ProgressStore on a SQLite file.
type SQLiteProgressStore struct {
	db     sqlx.ExtContext
	root   *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteProgressStore creates a ProgressStore on db. If logger is nil, a
// default logger will be used.
func NewSQLiteProgressStore(db *sqlx.DB, logger *slog.Logger) *SQLiteProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteProgressStore{
		db:     db,
		root:   db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

var _ store.ProgressStore = (*SQLiteProgressStore)(nil)

// WithTx implements store.ProgressStore.WithTx
func (s *SQLiteProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return &SQLiteProgressStore{db: wrapTx(s.root, tx), root: s.root, logger: s.logger}
}

func (s *SQLiteProgressStore) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "progress_store"))
	}
	return s.logger
}

const upsertProgressSQL = `
	INSERT INTO user_progress (user_id, question_id, level_id, category_id, status,
		attempts, last_attempted_at, last_answer)
	SELECT ?, q.id, q.level_id, q.category_id, ?, 1, ?, NULLIF(?, '')
	FROM questions q
	WHERE q.id = ?
	ON CONFLICT (user_id, question_id) DO UPDATE SET
		status            = excluded.status,
		attempts          = user_progress.attempts + 1,
		last_attempted_at = excluded.last_attempted_at,
		last_answer       = COALESCE(excluded.last_answer, user_progress.last_answer),
		level_id          = excluded.level_id,
		category_id       = excluded.category_id`

// RecordSubmission implements store.ProgressStore.RecordSubmission
// The upsert and the read of the resulting row share one transaction.
func (s *SQLiteProgressStore) RecordSubmission(
	ctx context.Context,
	sub store.Submission,
) (*domain.ProgressRecord, error) {
	if sub.UserID == uuid.Nil {
		return nil, store.NewStoreError("progress", "record", "user id is empty", store.ErrInvalidEntity)
	}

	var rec domain.ProgressRecord
	err := s.inTx(ctx, func(q sqlx.ExtContext) error {
		result, err := q.ExecContext(ctx, upsertProgressSQL,
			sub.UserID, string(domain.StatusFromOutcome(sub.Correct)), sub.At.UTC(), sub.RawAnswer, sub.QuestionID)
		if err != nil {
			return MapError(err, "progress", "record", nil)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return MapError(err, "progress", "record", nil)
		}
		if n == 0 {
			return store.NewStoreError("progress", "record", "question not found", store.ErrQuestionNotFound)
		}
		return MapError(sqlx.GetContext(ctx, q, &rec,
			`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? AND question_id = ?`,
			sub.UserID, sub.QuestionID), "progress", "record", nil)
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.log(ctx).Error("failed to record submission",
				slog.String("user_id", sub.UserID.String()),
				slog.String("question_id", sub.QuestionID.String()),
				slog.String("error", err.Error()))
		}
		return nil, err
	}
	return &rec, nil
}

// inTx runs fn on the bound transaction, or on a new one committed when fn succeeds.
func (s *SQLiteProgressStore) inTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return fn(tx)
	}

	tx, err := s.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", store.ErrTransactionFailed, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", store.ErrTransactionFailed, err)
	}
	return nil
}

// Get implements store.ProgressStore.Get
func (s *SQLiteProgressStore) Get(ctx context.Context, userID, questionID uuid.UUID) (*domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	err := sqlx.GetContext(ctx, s.db, &rec,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? AND question_id = ?`,
		userID, questionID)
	if err != nil {
		return nil, MapError(err, "progress", "get", nil)
	}
	return &rec, nil
}

// ListByUserPage implements store.ProgressStore.ListByUserPage
func (s *SQLiteProgressStore) ListByUserPage(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	var records []domain.ProgressRecord
	err := sqlx.SelectContext(ctx, s.db, &records,
		`SELECT `+progressColumns+` FROM user_progress
		WHERE user_id = ? ORDER BY question_id LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, MapError(err, "progress", "list_user", nil)
	}
	return records, nil
}

// ListByLevelPage implements store.ProgressStore.ListByLevelPage
func (s *SQLiteProgressStore) ListByLevelPage(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	var records []domain.ProgressRecord
	err := sqlx.SelectContext(ctx, s.db, &records,
		`SELECT p.user_id, p.question_id, q.level_id, p.category_id, p.status, p.attempts,
			p.last_attempted_at, COALESCE(p.last_answer, '') AS last_answer
		FROM user_progress p
		JOIN questions q ON q.id = p.question_id
		WHERE p.user_id = ? AND q.level_id = ?
		ORDER BY p.question_id LIMIT ? OFFSET ?`,
		userID, levelID, limit, offset)
	if err != nil {
		return nil, MapError(err, "progress", "list_level", nil)
	}
	return records, nil
}

// DeleteByLevel implements store.ProgressStore.DeleteByLevel
func (s *SQLiteProgressStore) DeleteByLevel(ctx context.Context, userID uuid.UUID, levelID string) (int64, error) {
	return s.delete(ctx, "delete_level",
		`DELETE FROM user_progress
		WHERE user_id = ? AND question_id IN (SELECT id FROM questions WHERE level_id = ?)`,
		userID, levelID)
}

// DeleteByCategory implements store.ProgressStore.DeleteByCategory
func (s *SQLiteProgressStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	return s.delete(ctx, "delete_category", `DELETE FROM user_progress WHERE category_id = ?`, categoryID)
}

// DeleteAll implements store.ProgressStore.DeleteAll
func (s *SQLiteProgressStore) DeleteAll(ctx context.Context) (int64, error) {
	return s.delete(ctx, "delete_all", `DELETE FROM user_progress`)
}

func (s *SQLiteProgressStore) delete(ctx context.Context, operation, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, MapError(err, "progress", operation, nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err, "progress", operation, nil)
	}
	s.log(ctx).Info("deleted progress records",
		slog.String("operation", operation),
		slog.Int64("count", n))
	return n, nil
}

// Count implements store.ProgressStore.Count
func (s *SQLiteProgressStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, s.db, &n, `SELECT COUNT(*) FROM user_progress`); err != nil {
		return 0, MapError(err, "progress", "count", nil)
	}
	return n, nil
}
