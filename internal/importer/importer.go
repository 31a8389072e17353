// Package importer loads vocabulary files into the question store and runs
// the maintenance jobs around it: reimporting a category, recomputing
// canonical answers, backfilling levels, seeding and wiping progress.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/answer"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/platform/metrics"
	"github.com/phrazzld/vocab-drill/internal/store"
)

// SeededAnswer is stored as the last answer of rows seeded as passed.
const SeededAnswer = "***seeded***"

const (
	defaultBatchSize = 500
	maxSamples       = 10
)

// ErrInvalidSeed is returned for seed requests that would write nothing.
var ErrInvalidSeed = errors.New("invalid seed request")

// Result summarizes one import run.
type Result struct {
	Parsed        int            `json:"parsed"`
	Imported      int            `json:"imported"`
	Skipped       int            `json:"skipped"`
	Failed        int            `json:"failed"`
	LevelsCreated int            `json:"levels_created"`
	Errors        []string       `json:"errors,omitempty"`
	Removed       *RemovedCounts `json:"removed,omitempty"`
}

// RemovedCounts reports what a reimport deleted before loading.
type RemovedCounts struct {
	Progress  int64 `json:"progress"`
	Questions int64 `json:"questions"`
}

// AnswerFix is one changed canonical answer.
type AnswerFix struct {
	QuestionID uuid.UUID `json:"question_id"`
	Word       string    `json:"word"`
	Old        string    `json:"old"`
	New        string    `json:"new"`
}

// FixResult summarizes a FixAnswers run.
type FixResult struct {
	Scanned   int         `json:"scanned"`
	Updated   int         `json:"updated"`
	Unchanged int         `json:"unchanged"`
	Errors    int         `json:"errors"`
	Samples   []AnswerFix `json:"samples,omitempty"`
}

// SeedRequest asks for the first Passed+Failed questions of a level, ordered
// by ID, to be marked passed then failed for one user.
type SeedRequest struct {
	UserID  uuid.UUID
	LevelID string
	Passed  int
	Failed  int
}

// SeedResult reports how many records a seed wrote.
type SeedResult struct {
	Cleared int64 `json:"cleared"`
	Passed  int   `json:"passed"`
	Failed  int   `json:"failed"`
}

// Importer runs vocabulary jobs against a database.
type Importer struct {
	db        *sql.DB
	questions store.QuestionStore
	progress  store.ProgressStore
	metrics   *metrics.Metrics
	batchSize int
	logger    *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithMetrics records row outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

// WithBatchSize sets the page and batch size used by every job.
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// New creates an Importer. The stores must be backed by db so that WithTx
// binds them to transactions opened on it.
func New(
	db *sql.DB,
	questions store.QuestionStore,
	progress store.ProgressStore,
	logger *slog.Logger,
	opts ...Option,
) *Importer {
	if db == nil {
		panic("db cannot be nil")
	}
	if questions == nil {
		panic("questions cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	i := &Importer{
		db:        db,
		questions: questions,
		progress:  progress,
		batchSize: defaultBatchSize,
		logger:    logger.With(slog.String("component", "importer")),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportFile parses path and imports its rows.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	parsed, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, parsed)
}

// Import turns rows into vocabulary questions and writes them together with
// any missing levels in one transaction. Rows that do not produce a valid
// question are counted as failed and reported; they never abort the run.
func (i *Importer) Import(ctx context.Context, parsed *ParseResult) (*Result, error) {
	res := &Result{}
	err := store.RunInTransaction(ctx, i.db, func(ctx context.Context, tx *sql.Tx) error {
		return i.importTx(ctx, tx, parsed, res)
	})
	if err != nil {
		return nil, err
	}
	i.finish(ctx, "import", res)
	return res, nil
}

// Reimport deletes every vocabulary question and all progress on them, then
// imports parsed, all in one transaction.
func (i *Importer) Reimport(ctx context.Context, parsed *ParseResult) (*Result, error) {
	res := &Result{Removed: &RemovedCounts{}}
	err := store.RunInTransaction(ctx, i.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		res.Removed.Progress, err = i.progress.WithTx(tx).DeleteByCategory(ctx, domain.CategoryVocabulary)
		if err != nil {
			return fmt.Errorf("failed to clear vocabulary progress: %w", err)
		}
		res.Removed.Questions, err = i.questions.WithTx(tx).DeleteByCategory(ctx, domain.CategoryVocabulary)
		if err != nil {
			return fmt.Errorf("failed to clear vocabulary questions: %w", err)
		}
		return i.importTx(ctx, tx, parsed, res)
	})
	if err != nil {
		return nil, err
	}
	i.finish(ctx, "reimport", res)
	return res, nil
}

func (i *Importer) importTx(ctx context.Context, tx *sql.Tx, parsed *ParseResult, res *Result) error {
	res.Parsed = len(parsed.Rows)
	res.Skipped = parsed.Skipped

	questions := make([]*domain.Question, 0, len(parsed.Rows))
	levels := make([]string, 0)
	for _, row := range parsed.Rows {
		canonical := answer.Extract(row.FullSentence, row.BlankSentence, row.GermanWord)
		q, err := domain.NewQuestion(
			row.GermanWord,
			row.EnglishTranslation,
			row.FullSentence,
			row.BlankSentence,
			row.EnglishSentence,
			row.LevelID,
			domain.CategoryVocabulary,
			canonical,
		)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
			continue
		}
		questions = append(questions, q)
		levels = append(levels, q.LevelID)
	}

	qs := i.questions.WithTx(tx)
	created, err := qs.EnsureLevels(ctx, levels)
	if err != nil {
		return fmt.Errorf("failed to ensure levels: %w", err)
	}
	res.LevelsCreated = created

	for start := 0; start < len(questions); start += i.batchSize {
		end := min(start+i.batchSize, len(questions))
		n, err := qs.CreateBatch(ctx, questions[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", start+1, end, err)
		}
		res.Imported += n
	}
	return nil
}

func (i *Importer) finish(ctx context.Context, job string, res *Result) {
	i.metrics.ObserveImport(res.Imported, res.Skipped, res.Failed)
	logger.FromContextOr(ctx, i.logger).Info("vocabulary loaded",
		slog.String("job", job),
		slog.Int("parsed", res.Parsed),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Int("levels_created", res.LevelsCreated))
}

// FixAnswers recomputes the canonical answer of every vocabulary question and
// stores the ones that changed. Per-question failures are counted and the
// run continues.
func (i *Importer) FixAnswers(ctx context.Context) (*FixResult, error) {
	log := logger.FromContextOr(ctx, i.logger)
	res := &FixResult{}
	filter := store.QuestionFilter{CategoryID: domain.CategoryVocabulary}

	// Updates never change IDs or membership, so offsets stay stable.
	for offset := 0; ; offset += i.batchSize {
		page, err := i.questions.ListPage(ctx, filter, i.batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions at offset %d: %w", offset, err)
		}
		for _, q := range page {
			res.Scanned++
			next := answer.Extract(q.FullSentence, q.BlankSentence, q.GermanWord)
			if next == q.CanonicalAnswer {
				res.Unchanged++
				continue
			}
			if err := i.questions.UpdateCanonicalAnswer(ctx, q.ID, next); err != nil {
				res.Errors++
				log.Warn("failed to update canonical answer",
					slog.String("question_id", q.ID.String()),
					slog.String("error", err.Error()))
				continue
			}
			res.Updated++
			if len(res.Samples) < maxSamples {
				res.Samples = append(res.Samples, AnswerFix{
					QuestionID: q.ID,
					Word:       q.GermanWord,
					Old:        q.CanonicalAnswer,
					New:        next,
				})
			}
		}
		if len(page) < i.batchSize {
			break
		}
	}

	log.Info("canonical answers recomputed",
		slog.Int("scanned", res.Scanned),
		slog.Int("updated", res.Updated),
		slog.Int("errors", res.Errors))
	return res, nil
}

// EnsureLevels creates a level row for every level ID referenced by a
// question but missing from the level table.
func (i *Importer) EnsureLevels(ctx context.Context) (int, error) {
	ids, err := i.questions.ReferencedLevels(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list referenced levels: %w", err)
	}
	created, err := i.questions.EnsureLevels(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure levels: %w", err)
	}
	logger.FromContextOr(ctx, i.logger).Info("levels ensured",
		slog.Int("referenced", len(ids)),
		slog.Int("created", created))
	return created, nil
}

// SeedProgress replaces a user's progress on one level with Passed passed
// records followed by Failed failed ones, each with a single attempt.
// Questions are taken in ID order; when the level has fewer, the rest of the
// request is ignored.
func (i *Importer) SeedProgress(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	req.LevelID = strings.TrimSpace(req.LevelID)
	switch {
	case req.UserID == uuid.Nil:
		return nil, fmt.Errorf("%w: user is required", ErrInvalidSeed)
	case req.LevelID == "":
		return nil, fmt.Errorf("%w: level is required", ErrInvalidSeed)
	case req.Passed < 0 || req.Failed < 0:
		return nil, fmt.Errorf("%w: counts cannot be negative", ErrInvalidSeed)
	case req.Passed+req.Failed == 0:
		return nil, fmt.Errorf("%w: nothing to seed", ErrInvalidSeed)
	}

	want := req.Passed + req.Failed
	targets, err := i.questions.ListPage(ctx, store.QuestionFilter{LevelID: req.LevelID}, want, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list level questions: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s has no questions", store.ErrLevelNotFound, req.LevelID)
	}

	res := &SeedResult{}
	now := time.Now().UTC()
	err = store.RunInTransaction(ctx, i.db, func(ctx context.Context, tx *sql.Tx) error {
		ps := i.progress.WithTx(tx)
		cleared, err := ps.DeleteByLevel(ctx, req.UserID, req.LevelID)
		if err != nil {
			return fmt.Errorf("failed to clear level progress: %w", err)
		}
		res.Cleared = cleared

		for n, q := range targets {
			passed := n < req.Passed
			sub := store.Submission{
				UserID:     req.UserID,
				QuestionID: q.ID,
				Correct:    passed,
				At:         now,
			}
			if passed {
				sub.RawAnswer = SeededAnswer
			}
			if _, err := ps.RecordSubmission(ctx, sub); err != nil {
				return fmt.Errorf("failed to seed question %s: %w", q.ID, err)
			}
			if passed {
				res.Passed++
			} else {
				res.Failed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, i.logger).Info("progress seeded",
		slog.String("user_id", req.UserID.String()),
		slog.String("level_id", req.LevelID),
		slog.Int("passed", res.Passed),
		slog.Int("failed", res.Failed))
	return res, nil
}

// ResetAll deletes every progress record of every user. It returns the
// number of records before and after the wipe.
func (i *Importer) ResetAll(ctx context.Context) (before, after int64, err error) {
	before, err = i.progress.Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count progress: %w", err)
	}
	deleted, err := i.progress.DeleteAll(ctx)
	if err != nil {
		return before, 0, fmt.Errorf("failed to delete progress: %w", err)
	}
	after, err = i.progress.Count(ctx)
	if err != nil {
		return before, 0, fmt.Errorf("failed to count progress: %w", err)
	}
	logger.FromContextOr(ctx, i.logger).Warn("all progress deleted",
		slog.Int64("before", before),
		slog.Int64("deleted", deleted),
		slog.Int64("after", after))
	return before, after, nil
}
