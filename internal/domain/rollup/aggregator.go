// Package rollup folds paged question and progress data into per-level
// summaries. Pages may arrive in any size and order; the result only depends
// on the rows seen.
package rollup

import (
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
)

// Aggregator accumulates one running map keyed by level.
// It is not safe for concurrent use.
type Aggregator struct {
	only string

	totals   map[string]int
	levelOf  map[uuid.UUID]string
	statuses map[uuid.UUID]domain.Status
}

// NewAggregator returns an Aggregator covering every level.
func NewAggregator() *Aggregator {
	return &Aggregator{
		totals:   make(map[string]int),
		levelOf:  make(map[uuid.UUID]string),
		statuses: make(map[uuid.UUID]domain.Status),
	}
}

// ForLevel returns an Aggregator that ignores questions outside levelID.
func ForLevel(levelID string) *Aggregator {
	a := NewAggregator()
	a.only = levelID
	return a
}

// AddQuestions folds a page of questions into the level totals. Questions
// without a level are ignored and a question seen twice counts once.
func (a *Aggregator) AddQuestions(page []domain.Question) {
	for _, q := range page {
		if q.LevelID == "" || (a.only != "" && q.LevelID != a.only) {
			continue
		}
		if _, seen := a.levelOf[q.ID]; seen {
			continue
		}
		a.levelOf[q.ID] = q.LevelID
		a.totals[q.LevelID]++
	}
}

// AddProgress folds a page of progress records. Records are attributed to
// levels through the questions, so they may be added before or after the
// question pages they refer to.
func (a *Aggregator) AddProgress(page []domain.ProgressRecord) {
	for _, p := range page {
		a.statuses[p.QuestionID] = p.Status
	}
}

// Summaries returns one summary per level with at least one question,
// ordered by level id.
func (a *Aggregator) Summaries() []domain.LevelSummary {
	passed := make(map[string]int, len(a.totals))
	failed := make(map[string]int, len(a.totals))
	for questionID, status := range a.statuses {
		lvl, ok := a.levelOf[questionID]
		if !ok {
			continue
		}
		switch status {
		case domain.StatusPassed:
			passed[lvl]++
		case domain.StatusFailed:
			failed[lvl]++
		}
	}

	out := make([]domain.LevelSummary, 0, len(a.totals))
	for lvl, total := range a.totals {
		out = append(out, domain.NewLevelSummary(lvl, total, passed[lvl], failed[lvl]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LevelID < out[j].LevelID })
	return out
}

// Summary returns the summary of a single level. A level without questions
// yields an all-zero summary.
func (a *Aggregator) Summary(levelID string) domain.LevelSummary {
	for _, s := range a.Summaries() {
		if s.LevelID == levelID {
			return s
		}
	}
	return domain.NewLevelSummary(levelID, 0, 0, 0)
}
