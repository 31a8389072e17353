package quiz

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/store"
	"github.com/stretchr/testify/mock"
)

type mockQuestionStore struct {
	mock.Mock
}

var _ store.QuestionStore = (*mockQuestionStore)(nil)

func (m *mockQuestionStore) Create(ctx context.Context, q *domain.Question) error {
	return m.Called(ctx, q).Error(0)
}

func (m *mockQuestionStore) CreateBatch(ctx context.Context, qs []*domain.Question) (int, error) {
	args := m.Called(ctx, qs)
	return args.Int(0), args.Error(1)
}

func (m *mockQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*domain.Question)
	return q, args.Error(1)
}

func (m *mockQuestionStore) ListPage(
	ctx context.Context,
	filter store.QuestionFilter,
	limit, offset int,
) ([]domain.Question, error) {
	args := m.Called(ctx, filter, limit, offset)
	page, _ := args.Get(0).([]domain.Question)
	return page, args.Error(1)
}

func (m *mockQuestionStore) UpdateCanonicalAnswer(ctx context.Context, id uuid.UUID, answer string) error {
	return m.Called(ctx, id, answer).Error(0)
}

func (m *mockQuestionStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockQuestionStore) EnsureLevels(ctx context.Context, levelIDs []string) (int, error) {
	args := m.Called(ctx, levelIDs)
	return args.Int(0), args.Error(1)
}

func (m *mockQuestionStore) ListLevels(ctx context.Context) ([]domain.Level, error) {
	args := m.Called(ctx)
	levels, _ := args.Get(0).([]domain.Level)
	return levels, args.Error(1)
}

func (m *mockQuestionStore) ReferencedLevels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockQuestionStore) WithTx(*sql.Tx) store.QuestionStore { return m }

type mockProgressStore struct {
	mock.Mock
}

var _ store.ProgressStore = (*mockProgressStore)(nil)

func (m *mockProgressStore) RecordSubmission(
	ctx context.Context,
	sub store.Submission,
) (*domain.ProgressRecord, error) {
	args := m.Called(ctx, sub)
	rec, _ := args.Get(0).(*domain.ProgressRecord)
	return rec, args.Error(1)
}

func (m *mockProgressStore) Get(ctx context.Context, userID, questionID uuid.UUID) (*domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, questionID)
	rec, _ := args.Get(0).(*domain.ProgressRecord)
	return rec, args.Error(1)
}

func (m *mockProgressStore) ListByUserPage(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	page, _ := args.Get(0).([]domain.ProgressRecord)
	return page, args.Error(1)
}

func (m *mockProgressStore) ListByLevelPage(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	limit, offset int,
) ([]domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, levelID, limit, offset)
	records, _ := args.Get(0).([]domain.ProgressRecord)
	return records, args.Error(1)
}

func (m *mockProgressStore) DeleteByLevel(ctx context.Context, userID uuid.UUID, levelID string) (int64, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProgressStore) DeleteByCategory(ctx context.Context, categoryID string) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProgressStore) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProgressStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProgressStore) WithTx(*sql.Tx) store.ProgressStore { return m }

// memoryCache is a SummaryCache keeping entries in a map.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]domain.LevelSummary
	invalidated int
	err         error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[uuid.UUID][]domain.LevelSummary)}
}

func (c *memoryCache) Get(_ context.Context, userID uuid.UUID) ([]domain.LevelSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	s, ok := c.entries[userID]
	return s, ok, nil
}

func (c *memoryCache) Set(_ context.Context, userID uuid.UUID, summaries []domain.LevelSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[userID] = summaries
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	if c.err != nil {
		return c.err
	}
	delete(c.entries, userID)
	return nil
}
