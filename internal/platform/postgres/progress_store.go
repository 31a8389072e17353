package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/store"
)

const progressColumns = `user_id, question_id, level_id, category_id, status, attempts,
	last_attempted_at, COALESCE(last_answer, '')`

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a ProgressStore on a connection or
// transaction managed by the caller. If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// WithTx implements store.ProgressStore.WithTx
func (s *PostgresProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return &PostgresProgressStore{db: tx, logger: s.logger}
}

func (s *PostgresProgressStore) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "progress_store"))
	}
	return s.logger
}

// The row is built from the question itself, so an unknown question id
// inserts nothing and RETURNING yields no row. Conflicting writers on the
// same pair serialize on the primary key and each sees the other's increment.
const recordSubmissionSQL = `
	INSERT INTO user_progress (user_id, question_id, level_id, category_id, status,
		attempts, last_attempted_at, last_answer)
	SELECT $1::uuid, q.id, q.level_id, q.category_id, $3::text, 1, $4::timestamptz, NULLIF($5::text, '')
	FROM questions q
	WHERE q.id = $2
	ON CONFLICT (user_id, question_id) DO UPDATE SET
		status            = EXCLUDED.status,
		attempts          = user_progress.attempts + 1,
		last_attempted_at = EXCLUDED.last_attempted_at,
		last_answer       = COALESCE(EXCLUDED.last_answer, user_progress.last_answer),
		level_id          = EXCLUDED.level_id,
		category_id       = EXCLUDED.category_id
	RETURNING ` + progressColumns

func scanProgress(row interface{ Scan(...any) error }) (domain.ProgressRecord, error) {
	var p domain.ProgressRecord
	err := row.Scan(
		&p.UserID, &p.QuestionID, &p.LevelID, &p.CategoryID, &p.Status,
		&p.Attempts, &p.LastAttemptedAt, &p.LastAnswer,
	)
	return p, err
}

// RecordSubmission implements store.ProgressStore.RecordSubmission
func (s *PostgresProgressStore) RecordSubmission(
	ctx context.Context,
	sub store.Submission,
) (*domain.ProgressRecord, error) {
	if sub.UserID == uuid.Nil {
		return nil, store.NewStoreError("progress", "record", "user id is empty", store.ErrInvalidEntity)
	}

	row := s.db.QueryRowContext(ctx, recordSubmissionSQL,
		sub.UserID, sub.QuestionID, string(domain.StatusFromOutcome(sub.Correct)), sub.At.UTC(), sub.RawAnswer)
	p, err := scanProgress(row)
	if err != nil {
		mapped := MapError(err, "progress", "record", store.ErrQuestionNotFound)
		if !store.IsNotFoundError(mapped) {
			s.log(ctx).Error("failed to record submission",
				slog.String("user_id", sub.UserID.String()),
				slog.String("question_id", sub.QuestionID.String()),
				slog.String("error", err.Error()))
		}
		return nil, mapped
	}

	s.log(ctx).Debug("recorded submission",
		slog.String("question_id", p.QuestionID.String()),
		slog.String("status", string(p.Status)),
		slog.Int("attempts", p.Attempts))
	return &p, nil
}

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(ctx context.Context, userID, questionID uuid.UUID) (*domain.ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND question_id = $2`,
		userID, questionID)
	p, err := scanProgress(row)
	if err != nil {
		return nil, MapError(err, "progress", "get", nil)
	}
	return &p, nil
}

// ListByUserPage implements store.ProgressStore.ListByUserPage
func (s *PostgresProgressStore) ListByUserPage(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	return s.list(ctx, "list_user",
		`SELECT `+progressColumns+` FROM user_progress
		WHERE user_id = $1 ORDER BY question_id LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

// ListByLevelPage implements store.ProgressStore.ListByLevelPage
// The level is resolved through the questions table so records written
// before a question moved level still follow the question.
func (s *PostgresProgressStore) ListByLevelPage(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	return s.list(ctx, "list_level",
		`SELECT p.user_id, p.question_id, q.level_id, p.category_id, p.status, p.attempts,
			p.last_attempted_at, COALESCE(p.last_answer, '')
		FROM user_progress p
		JOIN questions q ON q.id = p.question_id
		WHERE p.user_id = $1 AND q.level_id = $2
		ORDER BY p.question_id LIMIT $3 OFFSET $4`,
		userID, levelID, limit, offset)
}

func (s *PostgresProgressStore) list(
	ctx context.Context,
	operation, query string,
	args ...any,
) ([]domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log(ctx).Error("failed to list progress",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, MapError(err, "progress", operation, nil)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.ProgressRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, MapError(err, "progress", operation, nil)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "progress", operation, nil)
	}
	return records, nil
}

// DeleteByLevel implements store.ProgressStore.DeleteByLevel
func (s *PostgresProgressStore) DeleteByLevel(ctx context.Context, userID uuid.UUID, levelID string) (int64, error) {
	return s.delete(ctx, "delete_level",
		`DELETE FROM user_progress
		WHERE user_id = $1 AND question_id IN (SELECT id FROM questions WHERE level_id = $2)`,
		userID, levelID)
}

// DeleteByCategory implements store.ProgressStore.DeleteByCategory
func (s *PostgresProgressStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	return s.delete(ctx, "delete_category", `DELETE FROM user_progress WHERE category_id = $1`, categoryID)
}

// DeleteAll implements store.ProgressStore.DeleteAll
func (s *PostgresProgressStore) DeleteAll(ctx context.Context) (int64, error) {
	return s.delete(ctx, "delete_all", `DELETE FROM user_progress`)
}

func (s *PostgresProgressStore) delete(ctx context.Context, operation, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.log(ctx).Error("failed to delete progress",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
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
func (s *PostgresProgressStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_progress`).Scan(&n); err != nil {
		return 0, MapError(err, "progress", "count", nil)
	}
	return n, nil
}
