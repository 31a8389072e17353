package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
)

// QuestionFilter narrows a question listing. Empty fields match everything.
type QuestionFilter struct {
	LevelID    string
	CategoryID string
}

// QuestionStore persists questions and the levels they belong to.
type QuestionStore interface {
	// Create inserts a single validated question.
	// Returns ErrDuplicate if the ID already exists.
	Create(ctx context.Context, q *domain.Question) error

	// CreateBatch inserts all questions and returns how many were written.
	// Run it inside RunInTransaction through WithTx for all-or-nothing imports.
	CreateBatch(ctx context.Context, qs []*domain.Question) (int, error)

	// GetByID returns a single question or ErrQuestionNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error)

	// ListPage returns at most limit questions matching filter, ordered by ID.
	// A page shorter than limit is the last one.
	ListPage(ctx context.Context, filter QuestionFilter, limit, offset int) ([]domain.Question, error)

	// UpdateCanonicalAnswer replaces the stored answer of one question.
	// Returns ErrQuestionNotFound if the question does not exist.
	UpdateCanonicalAnswer(ctx context.Context, id uuid.UUID, answer string) error

	// DeleteByCategory removes every question in a category and returns the count.
	DeleteByCategory(ctx context.Context, categoryID string) (int64, error)

	// EnsureLevels creates a level row, titled after its ID, for every ID that
	// does not exist yet. It returns the number of rows created.
	EnsureLevels(ctx context.Context, levelIDs []string) (int, error)

	// ListLevels returns all level rows ordered by order index then ID.
	ListLevels(ctx context.Context) ([]domain.Level, error)

	// ReferencedLevels returns the distinct non-empty level IDs used by questions.
	ReferencedLevels(ctx context.Context) ([]string, error)

	// WithTx returns a QuestionStore bound to tx.
	WithTx(tx *sql.Tx) QuestionStore
}
