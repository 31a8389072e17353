package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/answer"
	"github.com/phrazzld/vocab-drill/internal/domain/rollup"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
	"github.com/phrazzld/vocab-drill/internal/platform/cache"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/platform/metrics"
	"github.com/phrazzld/vocab-drill/internal/store"
)

// DefaultPageSize bounds store reads when Options.PageSize is not set.
const DefaultPageSize = 1000

// Options carries the optional collaborators of the service.
type Options struct {
	// PageSize bounds every paged store read. Defaults to DefaultPageSize.
	PageSize int
	// Cache holds level summaries between submissions. Defaults to no cache.
	Cache cache.SummaryCache
	// Metrics records submissions, resets and cache lookups. May be nil.
	Metrics *metrics.Metrics
	// Selector orders working sets. Defaults to a randomly seeded selector.
	Selector *session.Selector
	// Now is the clock used for submission timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	questions store.QuestionStore
	progress  store.ProgressStore
	cache     cache.SummaryCache
	metrics   *metrics.Metrics
	selector  *session.Selector
	pageSize  int
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a quiz Service on the given stores.
func NewService(
	questions store.QuestionStore,
	progress store.ProgressStore,
	opts Options,
	logger *slog.Logger,
) Service {
	if questions == nil {
		panic("questions cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		questions: questions,
		progress:  progress,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		selector:  opts.Selector,
		pageSize:  opts.PageSize,
		now:       opts.Now,
		logger:    logger.With(slog.String("component", "quiz_service")),
	}
	if s.cache == nil {
		s.cache = cache.NopSummaryCache{}
	}
	if s.selector == nil {
		s.selector = session.NewSelector(nil)
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// FetchLevels implements Service.FetchLevels.
func (s *serviceImpl) FetchLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelSummary, error) {
	log := logger.FromContextOr(ctx, s.logger)
	if userID == uuid.Nil {
		return nil, NewServiceError("fetch_levels", "missing caller", ErrUserRequired)
	}

	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		log.Warn("summary cache lookup failed", slog.String("error", err.Error()))
	}
	s.metrics.ObserveCacheLookup(ok)
	if ok {
		return cached, nil
	}

	agg := rollup.NewAggregator()
	if err := s.eachQuestionPage(ctx, store.QuestionFilter{}, agg.AddQuestions); err != nil {
		log.Error("failed to page questions", slog.String("error", err.Error()))
		return nil, NewServiceError("fetch_levels", "failed to read questions", err)
	}
	err = s.eachProgressPage(func(limit, offset int) ([]domain.ProgressRecord, error) {
		return s.progress.ListByUserPage(ctx, userID, limit, offset)
	}, agg.AddProgress)
	if err != nil {
		log.Error("failed to page progress",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("fetch_levels", "failed to read progress", err)
	}

	summaries := agg.Summaries()
	// A submit landing between the reads above and this write leaves a stale
	// entry behind; the cache TTL bounds how long it is served.
	if err := s.cache.Set(ctx, userID, summaries); err != nil {
		log.Warn("failed to cache summaries", slog.String("error", err.Error()))
	}
	return summaries, nil
}

// LevelSummary implements Service.LevelSummary.
func (s *serviceImpl) LevelSummary(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
) (domain.LevelSummary, error) {
	levelID = strings.TrimSpace(levelID)
	if levelID == "" {
		return domain.LevelSummary{}, NewServiceError("level_summary", "missing level", ErrLevelRequired)
	}

	agg := rollup.ForLevel(levelID)
	if err := s.eachQuestionPage(ctx, store.QuestionFilter{LevelID: levelID}, agg.AddQuestions); err != nil {
		return domain.LevelSummary{}, NewServiceError("level_summary", "failed to read questions", err)
	}
	if err := s.eachLevelProgressPage(ctx, userID, levelID, agg.AddProgress); err != nil {
		return domain.LevelSummary{}, NewServiceError("level_summary", "failed to read progress", err)
	}
	return agg.Summary(levelID), nil
}

// FetchQuestions implements Service.FetchQuestions.
func (s *serviceImpl) FetchQuestions(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
) ([]session.Item, error) {
	log := logger.FromContextOr(ctx, s.logger)
	levelID = strings.TrimSpace(levelID)
	if levelID == "" {
		return nil, NewServiceError("fetch_questions", "missing level", ErrLevelRequired)
	}
	if userID == uuid.Nil {
		return nil, NewServiceError("fetch_questions", "missing caller", ErrUserRequired)
	}

	var questions []domain.Question
	err := s.eachQuestionPage(ctx, store.QuestionFilter{LevelID: levelID}, func(page []domain.Question) {
		questions = append(questions, page...)
	})
	if err != nil {
		log.Error("failed to read level questions",
			slog.String("level_id", levelID),
			slog.String("error", err.Error()))
		return nil, NewServiceError("fetch_questions", "failed to read questions", err)
	}

	var records []domain.ProgressRecord
	err = s.eachLevelProgressPage(ctx, userID, levelID, func(page []domain.ProgressRecord) {
		records = append(records, page...)
	})
	if err != nil {
		log.Error("failed to read level progress",
			slog.String("level_id", levelID),
			slog.String("error", err.Error()))
		return nil, NewServiceError("fetch_questions", "failed to read progress", err)
	}

	return merge(userID, questions, records), nil
}

// merge pairs every question with its stored record, or a pending one.
func merge(userID uuid.UUID, questions []domain.Question, records []domain.ProgressRecord) []session.Item {
	byQuestion := make(map[uuid.UUID]domain.ProgressRecord, len(records))
	for _, r := range records {
		byQuestion[r.QuestionID] = r
	}

	items := make([]session.Item, 0, len(questions))
	for i := range questions {
		q := questions[i]
		rec, ok := byQuestion[q.ID]
		if !ok {
			rec = domain.PendingRecord(userID, &q)
		}
		items = append(items, session.Item{Question: q, Progress: rec})
	}
	return items
}

// Session implements Service.Session.
func (s *serviceImpl) Session(ctx context.Context, userID uuid.UUID, levelID string) (session.WorkingSet, error) {
	snapshot, err := s.FetchQuestions(ctx, userID, levelID)
	if err != nil {
		return session.WorkingSet{}, err
	}
	return s.selector.Select(snapshot), nil
}

// Advance implements Service.Advance.
func (s *serviceImpl) Advance(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	ws session.WorkingSet,
	correct bool,
) (session.WorkingSet, error) {
	snapshot, err := s.FetchQuestions(ctx, userID, levelID)
	if err != nil {
		return session.WorkingSet{}, err
	}
	return s.selector.Advance(ws, correct, snapshot), nil
}

// SubmitAnswer implements Service.SubmitAnswer.
func (s *serviceImpl) SubmitAnswer(ctx context.Context, userID uuid.UUID, sub Submission) (*SubmitResult, error) {
	log := logger.FromContextOr(ctx, s.logger)
	if userID == uuid.Nil {
		return nil, NewServiceError("submit_answer", "missing caller", ErrUserRequired)
	}
	if sub.QuestionID == uuid.Nil {
		return nil, NewServiceError("submit_answer", "missing question", ErrQuestionRequired)
	}

	var correct bool
	if sub.IsCorrect != nil {
		correct = *sub.IsCorrect
	} else {
		q, err := s.questions.GetByID(ctx, sub.QuestionID)
		if err != nil {
			return nil, s.submitError(log, sub, err)
		}
		correct = answer.Match(sub.Answer, q.CanonicalAnswer)
	}

	rec, err := s.progress.RecordSubmission(ctx, store.Submission{
		UserID:     userID,
		QuestionID: sub.QuestionID,
		Correct:    correct,
		RawAnswer:  sub.Answer,
		At:         s.now(),
	})
	if err != nil {
		return nil, s.submitError(log, sub, err)
	}

	s.invalidate(ctx, log, userID)
	s.metrics.ObserveSubmission(correct)

	log.Debug("recorded submission",
		slog.String("user_id", userID.String()),
		slog.String("question_id", sub.QuestionID.String()),
		slog.Bool("correct", correct),
		slog.Int("attempts", rec.Attempts))
	return &SubmitResult{Correct: correct, Progress: *rec}, nil
}

func (s *serviceImpl) submitError(log *slog.Logger, sub Submission, err error) error {
	if errors.Is(err, store.ErrQuestionNotFound) {
		log.Warn("submission for unknown question", slog.String("question_id", sub.QuestionID.String()))
		return NewServiceError("submit_answer", "question not found", fmt.Errorf("%w: %w", ErrQuestionNotFound, err))
	}
	log.Error("failed to record submission",
		slog.String("question_id", sub.QuestionID.String()),
		slog.String("error", err.Error()))
	return NewServiceError("submit_answer", "failed to record submission", err)
}

// ResetProgress implements Service.ResetProgress.
func (s *serviceImpl) ResetProgress(ctx context.Context, userID uuid.UUID, levelID string) (int64, error) {
	log := logger.FromContextOr(ctx, s.logger)
	levelID = strings.TrimSpace(levelID)
	if levelID == "" {
		return 0, NewServiceError("reset_progress", "missing level", ErrLevelRequired)
	}
	if userID == uuid.Nil {
		return 0, NewServiceError("reset_progress", "missing caller", ErrUserRequired)
	}

	deleted, err := s.progress.DeleteByLevel(ctx, userID, levelID)
	if err != nil {
		log.Error("failed to reset level",
			slog.String("level_id", levelID),
			slog.String("error", err.Error()))
		return 0, NewServiceError("reset_progress", "failed to delete progress", err)
	}

	s.invalidate(ctx, log, userID)
	s.metrics.ObserveReset()

	log.Info("reset level progress",
		slog.String("user_id", userID.String()),
		slog.String("level_id", levelID),
		slog.Int64("deleted", deleted))
	return deleted, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, log *slog.Logger, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Warn("failed to invalidate summary cache",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
	}
}

// eachQuestionPage streams the questions matching filter to fn one page at
// a time. A page shorter than the page size ends the scan.
func (s *serviceImpl) eachQuestionPage(
	ctx context.Context,
	filter store.QuestionFilter,
	fn func([]domain.Question),
) error {
	for offset := 0; ; offset += s.pageSize {
		page, err := s.questions.ListPage(ctx, filter, s.pageSize, offset)
		if err != nil {
			return err
		}
		fn(page)
		if len(page) < s.pageSize {
			return nil
		}
	}
}

// eachLevelProgressPage streams the user's records for one level to fn.
func (s *serviceImpl) eachLevelProgressPage(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	fn func([]domain.ProgressRecord),
) error {
	return s.eachProgressPage(func(limit, offset int) ([]domain.ProgressRecord, error) {
		return s.progress.ListByLevelPage(ctx, userID, levelID, limit, offset)
	}, fn)
}

func (s *serviceImpl) eachProgressPage(
	list func(limit, offset int) ([]domain.ProgressRecord, error),
	fn func([]domain.ProgressRecord),
) error {
	for offset := 0; ; offset += s.pageSize {
		page, err := list(s.pageSize, offset)
		if err != nil {
			return err
		}
		fn(page)
		if len(page) < s.pageSize {
			return nil
		}
	}
}
