//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/platform/postgres"
	"github.com/phrazzld/vocab-drill/internal/store"
	"github.com/phrazzld/vocab-drill/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB is shared by every integration test in the package. Each test
// works on its own level and user so tests can run in parallel.
var testDB *sql.DB

func TestMain(m *testing.M) {
	os.Exit(runWithContainer(m))
}

func runWithContainer(m *testing.M) int {
	db, err := testdb.Start(context.Background())
	if err != nil {
		fmt.Printf("failed to set up test database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	testDB = db.DB
	return m.Run()
}

func seedLevel(t *testing.T, n int) (string, []*domain.Question) {
	t.Helper()
	ctx := context.Background()
	levelID := "L-" + uuid.NewString()[:8]

	qs := make([]*domain.Question, 0, n)
	for i := 0; i < n; i++ {
		word := fmt.Sprintf("Wort%d", i)
		q, err := domain.NewQuestion(word, "word", "Das ist "+word+".", "Das ist __.", "", levelID, "", word)
		require.NoError(t, err)
		qs = append(qs, q)
	}

	questions := postgres.NewPostgresQuestionStore(testDB, nil)
	_, err := questions.EnsureLevels(ctx, []string{levelID})
	require.NoError(t, err)
	written, err := questions.CreateBatch(ctx, qs)
	require.NoError(t, err)
	require.Equal(t, n, written)
	return levelID, qs
}

func TestQuestionStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	questions := postgres.NewPostgresQuestionStore(testDB, nil)
	levelID, qs := seedLevel(t, 5)

	got, err := questions.GetByID(ctx, qs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, qs[0].GermanWord, got.GermanWord)
	assert.Equal(t, domain.CategoryVocabulary, got.CategoryID)

	_, err = questions.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrQuestionNotFound)

	var listed []domain.Question
	for offset := 0; ; offset += 2 {
		page, err := questions.ListPage(ctx, store.QuestionFilter{LevelID: levelID}, 2, offset)
		require.NoError(t, err)
		listed = append(listed, page...)
		if len(page) < 2 {
			break
		}
	}
	assert.Len(t, listed, 5)

	require.NoError(t, questions.UpdateCanonicalAnswer(ctx, qs[1].ID, "neu"))
	got, err = questions.GetByID(ctx, qs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "neu", got.CanonicalAnswer)
	assert.ErrorIs(t, questions.UpdateCanonicalAnswer(ctx, uuid.New(), "x"), store.ErrQuestionNotFound)

	err = questions.Create(ctx, qs[0])
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, "23505", store.CodeOf(err))

	created, err := questions.EnsureLevels(ctx, []string{levelID, levelID, ""})
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	referenced, err := questions.ReferencedLevels(ctx)
	require.NoError(t, err)
	assert.Contains(t, referenced, levelID)
}

func TestCreateBatchRollsBackInTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	questions := postgres.NewPostgresQuestionStore(testDB, nil)
	levelID, qs := seedLevel(t, 1)

	fresh, err := domain.NewQuestion("Neu", "new", "", "", "", levelID, "", "Neu")
	require.NoError(t, err)

	err = store.RunInTransaction(ctx, testDB, func(ctx context.Context, tx *sql.Tx) error {
		_, err := questions.WithTx(tx).CreateBatch(ctx, []*domain.Question{fresh, qs[0]})
		return err
	})
	require.ErrorIs(t, err, store.ErrDuplicate)

	_, err = questions.GetByID(ctx, fresh.ID)
	assert.ErrorIs(t, err, store.ErrQuestionNotFound, "first row of the failed batch must be rolled back")
}

func TestRecordSubmission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	progress := postgres.NewPostgresProgressStore(testDB, nil)
	levelID, qs := seedLevel(t, 2)
	user := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := progress.RecordSubmission(ctx, store.Submission{
		UserID: user, QuestionID: qs[0].ID, Correct: false, RawAnswer: "falsch", At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, levelID, rec.LevelID)
	assert.Equal(t, "falsch", rec.LastAnswer)

	rec, err = progress.RecordSubmission(ctx, store.Submission{
		UserID: user, QuestionID: qs[0].ID, Correct: true, At: at.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPassed, rec.Status)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, "falsch", rec.LastAnswer, "an empty answer keeps the previous one")
	assert.True(t, rec.LastAttemptedAt.Equal(at.Add(time.Minute)))

	_, err = progress.RecordSubmission(ctx, store.Submission{
		UserID: user, QuestionID: uuid.New(), Correct: true, At: at,
	})
	assert.ErrorIs(t, err, store.ErrQuestionNotFound)

	_, err = progress.Get(ctx, user, qs[1].ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "unanswered questions have no stored record")
}

func TestRecordSubmissionConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	progress := postgres.NewPostgresProgressStore(testDB, nil)
	_, qs := seedLevel(t, 1)
	user := uuid.New()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(correct bool) {
			defer wg.Done()
			_, err := progress.RecordSubmission(ctx, store.Submission{
				UserID: user, QuestionID: qs[0].ID, Correct: correct, At: time.Now(),
			})
			errs <- err
		}(i%2 == 0)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := progress.Get(ctx, user, qs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, writers, rec.Attempts)
}

func TestDeleteByLevelIsScoped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	progress := postgres.NewPostgresProgressStore(testDB, nil)
	levelA, qa := seedLevel(t, 2)
	_, qb := seedLevel(t, 1)
	user, other := uuid.New(), uuid.New()

	for _, sub := range []store.Submission{
		{UserID: user, QuestionID: qa[0].ID, Correct: true},
		{UserID: user, QuestionID: qa[1].ID},
		{UserID: user, QuestionID: qb[0].ID, Correct: true},
		{UserID: other, QuestionID: qa[0].ID},
	} {
		sub.At = time.Now()
		_, err := progress.RecordSubmission(ctx, sub)
		require.NoError(t, err)
	}

	n, err := progress.DeleteByLevel(ctx, user, levelA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := progress.ListByUserPage(ctx, user, 10, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, qb[0].ID, remaining[0].QuestionID)

	others, err := progress.ListByLevelPage(ctx, other, levelA, 10, 0)
	require.NoError(t, err)
	assert.Len(t, others, 1, "other users keep their progress")

	n, err = progress.DeleteByLevel(ctx, user, levelA)
	require.NoError(t, err)
	assert.Zero(t, n, "resetting twice is a no-op")
}

// Not parallel: the deletes lock every vocabulary row until the rollback.
func TestCategoryDeletesInRolledBackTransaction(t *testing.T) {
	ctx := context.Background()
	questions := postgres.NewPostgresQuestionStore(testDB, nil)
	progress := postgres.NewPostgresProgressStore(testDB, nil)
	_, qs := seedLevel(t, 2)
	user := uuid.New()

	_, err := progress.RecordSubmission(ctx, store.Submission{
		UserID: user, QuestionID: qs[0].ID, Correct: true, At: time.Now(),
	})
	require.NoError(t, err)

	testdb.WithTx(t, testDB, func(t *testing.T, tx *sql.Tx) {
		removed, err := progress.WithTx(tx).DeleteByCategory(ctx, domain.CategoryVocabulary)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))

		deleted, err := questions.WithTx(tx).DeleteByCategory(ctx, domain.CategoryVocabulary)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(2))

		_, err = questions.WithTx(tx).GetByID(ctx, qs[0].ID)
		assert.ErrorIs(t, err, store.ErrQuestionNotFound)
	})

	got, err := questions.GetByID(ctx, qs[0].ID)
	require.NoError(t, err, "the rollback restores the question")
	assert.Equal(t, qs[0].GermanWord, got.GermanWord)

	rec, err := progress.Get(ctx, user, qs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPassed, rec.Status)
}
