package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/store"
)

const questionColumns = `id, german_word, english_translation, full_sentence, blank_sentence,
	english_sentence, level_id, category_id, canonical_answer, created_at, updated_at`

// SQLiteQuestionStore implements store.QuestionStore on a SQLite file.
type SQLiteQuestionStore struct {
	db     sqlx.ExtContext
	root   *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteQuestionStore creates a QuestionStore on db. If logger is nil, a
// default logger will be used.
func NewSQLiteQuestionStore(db *sqlx.DB, logger *slog.Logger) *SQLiteQuestionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteQuestionStore{
		db:     db,
		root:   db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

var _ store.QuestionStore = (*SQLiteQuestionStore)(nil)

// WithTx implements store.QuestionStore.WithTx
func (s *SQLiteQuestionStore) WithTx(tx *sql.Tx) store.QuestionStore {
	return &SQLiteQuestionStore{db: wrapTx(s.root, tx), root: s.root, logger: s.logger}
}

func (s *SQLiteQuestionStore) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "question_store"))
	}
	return s.logger
}

const insertQuestionSQL = `
	INSERT INTO questions (` + questionColumns + `)
	VALUES (:id, :german_word, :english_translation, :full_sentence, :blank_sentence,
		:english_sentence, :level_id, :category_id, :canonical_answer, :created_at, :updated_at)`

// Create implements store.QuestionStore.Create
func (s *SQLiteQuestionStore) Create(ctx context.Context, q *domain.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if _, err := sqlx.NamedExecContext(ctx, s.db, insertQuestionSQL, q); err != nil {
		s.log(ctx).Error("failed to insert question",
			slog.String("question_id", q.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err, "question", "create", nil)
	}
	return nil
}

// CreateBatch implements store.QuestionStore.CreateBatch
func (s *SQLiteQuestionStore) CreateBatch(ctx context.Context, qs []*domain.Question) (int, error) {
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	written := 0
	for _, q := range qs {
		if _, err := sqlx.NamedExecContext(ctx, s.db, insertQuestionSQL, q); err != nil {
			s.log(ctx).Error("failed to insert question in batch",
				slog.String("question_id", q.ID.String()),
				slog.Int("written", written),
				slog.String("error", err.Error()))
			return written, MapError(err, "question", "create_batch", nil)
		}
		written++
	}
	return written, nil
}

// GetByID implements store.QuestionStore.GetByID
func (s *SQLiteQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var q domain.Question
	err := sqlx.GetContext(ctx, s.db, &q, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	if err != nil {
		return nil, MapError(err, "question", "get", store.ErrQuestionNotFound)
	}
	return &q, nil
}

// ListPage implements store.QuestionStore.ListPage
func (s *SQLiteQuestionStore) ListPage(
	ctx context.Context,
	filter store.QuestionFilter,
	limit, offset int,
) ([]domain.Question, error) {
	var (
		where []string
		args  []any
	)
	if filter.LevelID != "" {
		where = append(where, "level_id = ?")
		args = append(args, filter.LevelID)
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	page := make([]domain.Question, 0, limit)
	if err := sqlx.SelectContext(ctx, s.db, &page, query, args...); err != nil {
		s.log(ctx).Error("failed to list questions",
			slog.String("level_id", filter.LevelID),
			slog.Int("offset", offset),
			slog.String("error", err.Error()))
		return nil, MapError(err, "question", "list", nil)
	}
	return page, nil
}

// UpdateCanonicalAnswer implements store.QuestionStore.UpdateCanonicalAnswer
func (s *SQLiteQuestionStore) UpdateCanonicalAnswer(ctx context.Context, id uuid.UUID, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrQuestionAnswerEmpty)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE questions SET canonical_answer = ?, updated_at = ? WHERE id = ?`,
		answer, time.Now().UTC(), id)
	if err != nil {
		return MapError(err, "question", "update_answer", nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return MapError(err, "question", "update_answer", nil)
	}
	if n == 0 {
		return store.NewStoreError("question", "update_answer", "question not found", store.ErrQuestionNotFound)
	}
	return nil
}

// DeleteByCategory implements store.QuestionStore.DeleteByCategory
func (s *SQLiteQuestionStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, MapError(err, "question", "delete_category", nil)
	}
	return result.RowsAffected()
}

// EnsureLevels implements store.QuestionStore.EnsureLevels
func (s *SQLiteQuestionStore) EnsureLevels(ctx context.Context, levelIDs []string) (int, error) {
	created := 0
	for _, id := range uniqueNonEmpty(levelIDs) {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO levels (id, title, order_index) VALUES (?, ?, 0) ON CONFLICT (id) DO NOTHING`, id, id)
		if err != nil {
			return created, MapError(err, "level", "ensure", nil)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			created++
		}
	}
	if created > 0 {
		s.log(ctx).Info("created missing levels", slog.Int("count", created))
	}
	return created, nil
}

// ListLevels implements store.QuestionStore.ListLevels
func (s *SQLiteQuestionStore) ListLevels(ctx context.Context) ([]domain.Level, error) {
	var levels []domain.Level
	err := sqlx.SelectContext(ctx, s.db, &levels,
		`SELECT id, title, order_index FROM levels ORDER BY order_index, id`)
	if err != nil {
		return nil, MapError(err, "level", "list", nil)
	}
	return levels, nil
}

// ReferencedLevels implements store.QuestionStore.ReferencedLevels
func (s *SQLiteQuestionStore) ReferencedLevels(ctx context.Context) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, s.db, &ids,
		`SELECT DISTINCT level_id FROM questions WHERE level_id <> '' ORDER BY level_id`)
	if err != nil {
		return nil, MapError(err, "level", "referenced", nil)
	}
	return ids, nil
}

// wrapTx adopts a transaction begun on root's *sql.DB so the sqlx helpers
// can run on it with root's field mapper.
func wrapTx(root *sqlx.DB, tx *sql.Tx) *sqlx.Tx {
	return &sqlx.Tx{Tx: tx, Mapper: root.Mapper}
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
