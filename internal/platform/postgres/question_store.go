package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/store"
)

const questionColumns = `id, german_word, english_translation, full_sentence, blank_sentence,
	english_sentence, level_id, category_id, canonical_answer, created_at, updated_at`

// PostgresQuestionStore implements the store.QuestionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresQuestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuestionStore creates a QuestionStore on a connection or transaction
// managed by the caller. If logger is nil, a default logger will be used.
func NewPostgresQuestionStore(db store.DBTX, logger *slog.Logger) *PostgresQuestionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQuestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

// Ensure PostgresQuestionStore implements store.QuestionStore interface
var _ store.QuestionStore = (*PostgresQuestionStore)(nil)

// WithTx implements store.QuestionStore.WithTx
func (s *PostgresQuestionStore) WithTx(tx *sql.Tx) store.QuestionStore {
	return &PostgresQuestionStore{db: tx, logger: s.logger}
}

func (s *PostgresQuestionStore) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "question_store"))
	}
	return s.logger
}

const insertQuestionSQL = `
	INSERT INTO questions (` + questionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func questionArgs(q *domain.Question) []any {
	return []any{
		q.ID, q.GermanWord, q.EnglishTranslation, q.FullSentence, q.BlankSentence,
		q.EnglishSentence, q.LevelID, q.CategoryID, q.CanonicalAnswer, q.CreatedAt, q.UpdatedAt,
	}
}

// Create implements store.QuestionStore.Create
func (s *PostgresQuestionStore) Create(ctx context.Context, q *domain.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if _, err := s.db.ExecContext(ctx, insertQuestionSQL, questionArgs(q)...); err != nil {
		s.log(ctx).Error("failed to insert question",
			slog.String("question_id", q.ID.String()),
			slog.String("level_id", q.LevelID),
			slog.String("error", err.Error()))
		return MapError(err, "question", "create", nil)
	}
	return nil
}

// CreateBatch implements store.QuestionStore.CreateBatch
// A single prepared statement is reused for every row. The first failure
// stops the batch; run it inside a transaction to discard partial work.
func (s *PostgresQuestionStore) CreateBatch(ctx context.Context, qs []*domain.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	stmt, err := s.db.PrepareContext(ctx, insertQuestionSQL)
	if err != nil {
		return 0, MapError(err, "question", "create_batch", nil)
	}
	defer func() { _ = stmt.Close() }()

	written := 0
	for _, q := range qs {
		if _, err := stmt.ExecContext(ctx, questionArgs(q)...); err != nil {
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

func scanQuestion(row interface{ Scan(...any) error }) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(
		&q.ID, &q.GermanWord, &q.EnglishTranslation, &q.FullSentence, &q.BlankSentence,
		&q.EnglishSentence, &q.LevelID, &q.CategoryID, &q.CanonicalAnswer, &q.CreatedAt, &q.UpdatedAt,
	)
	return q, err
}

// GetByID implements store.QuestionStore.GetByID
func (s *PostgresQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, MapError(err, "question", "get", store.ErrQuestionNotFound)
	}
	return &q, nil
}

// ListPage implements store.QuestionStore.ListPage
func (s *PostgresQuestionStore) ListPage(
	ctx context.Context,
	filter store.QuestionFilter,
	limit, offset int,
) ([]domain.Question, error) {
	var (
		where []string
		args  []any
	)
	if filter.LevelID != "" {
		args = append(args, filter.LevelID)
		where = append(where, fmt.Sprintf("level_id = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log(ctx).Error("failed to list questions",
			slog.String("level_id", filter.LevelID),
			slog.Int("offset", offset),
			slog.String("error", err.Error()))
		return nil, MapError(err, "question", "list", nil)
	}
	defer func() { _ = rows.Close() }()

	page := make([]domain.Question, 0, limit)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, MapError(err, "question", "list", nil)
		}
		page = append(page, q)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "question", "list", nil)
	}
	return page, nil
}

// UpdateCanonicalAnswer implements store.QuestionStore.UpdateCanonicalAnswer
func (s *PostgresQuestionStore) UpdateCanonicalAnswer(ctx context.Context, id uuid.UUID, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrQuestionAnswerEmpty)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE questions SET canonical_answer = $2, updated_at = NOW() WHERE id = $1`, id, answer)
	if err != nil {
		return MapError(err, "question", "update_answer", nil)
	}
	return CheckRowsAffected(result, store.ErrQuestionNotFound)
}

// DeleteByCategory implements store.QuestionStore.DeleteByCategory
func (s *PostgresQuestionStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, MapError(err, "question", "delete_category", nil)
	}
	return result.RowsAffected()
}

// EnsureLevels implements store.QuestionStore.EnsureLevels
func (s *PostgresQuestionStore) EnsureLevels(ctx context.Context, levelIDs []string) (int, error) {
	created := 0
	for _, id := range uniqueNonEmpty(levelIDs) {
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO levels (id, title, order_index) VALUES ($1, $1, 0) ON CONFLICT (id) DO NOTHING`, id)
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
func (s *PostgresQuestionStore) ListLevels(ctx context.Context) ([]domain.Level, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, order_index FROM levels ORDER BY order_index, id`)
	if err != nil {
		return nil, MapError(err, "level", "list", nil)
	}
	defer func() { _ = rows.Close() }()

	var levels []domain.Level
	for rows.Next() {
		var l domain.Level
		if err := rows.Scan(&l.ID, &l.Title, &l.OrderIndex); err != nil {
			return nil, MapError(err, "level", "list", nil)
		}
		levels = append(levels, l)
	}
	return levels, MapError(rows.Err(), "level", "list", nil)
}

// ReferencedLevels implements store.QuestionStore.ReferencedLevels
func (s *PostgresQuestionStore) ReferencedLevels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT level_id FROM questions WHERE level_id <> '' ORDER BY level_id`)
	if err != nil {
		return nil, MapError(err, "level", "referenced", nil)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err, "level", "referenced", nil)
		}
		ids = append(ids, id)
	}
	return ids, MapError(rows.Err(), "level", "referenced", nil)
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
