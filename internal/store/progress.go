package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
)

// Submission is one graded answer to be recorded.
type Submission struct {
	UserID     uuid.UUID
	QuestionID uuid.UUID
	Correct    bool
	// RawAnswer replaces the stored last answer when non-empty.
	RawAnswer string
	At        time.Time
}

// ProgressStore persists per-(user, question) progress records.
type ProgressStore interface {
	// RecordSubmission applies one submission as a single atomic
	// insert-or-update keyed by (user, question): attempts grows by one and
	// the status is taken from the submission. Level and category are copied
	// from the question. Concurrent calls for the same pair never lose an
	// increment. Returns ErrQuestionNotFound when the question does not exist,
	// in which case nothing is written.
	RecordSubmission(ctx context.Context, sub Submission) (*domain.ProgressRecord, error)

	// Get returns the record for a pair or ErrNotFound when it is still pending.
	Get(ctx context.Context, userID, questionID uuid.UUID) (*domain.ProgressRecord, error)

	// ListByUserPage returns at most limit records of a user ordered by question ID.
	ListByUserPage(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.ProgressRecord, error)

	// ListByLevelPage returns at most limit of the user's records for the
	// questions of a level, ordered by question ID.
	ListByLevelPage(
		ctx context.Context,
		userID uuid.UUID,
		levelID string,
		limit, offset int,
	) ([]domain.ProgressRecord, error)

	// DeleteByLevel removes the user's records for every question of a level
	// and returns the number removed.
	DeleteByLevel(ctx context.Context, userID uuid.UUID, levelID string) (int64, error)

	// DeleteByCategory removes the records of every user in a category.
	DeleteByCategory(ctx context.Context, categoryID string) (int64, error)

	// DeleteAll removes every record of every user.
	DeleteAll(ctx context.Context) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// WithTx returns a ProgressStore bound to tx.
	WithTx(tx *sql.Tx) ProgressStore
}
