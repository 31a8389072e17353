// Package session decides which questions of a level to drill and in which
// order. The selector holds no session state: a WorkingSet is always derived
// from the current progress snapshot, so a client that reloads simply asks for
// a new one.
package session

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
)

// Mode tags how a working set was chosen.
type Mode string

const (
	// ModeFocusFailed drills failed questions, or pending ones when none have
	// failed, and repeats a question until it is answered correctly.
	ModeFocusFailed Mode = "focus_failed"
	// ModeReviewAll cycles once through every passed question.
	ModeReviewAll Mode = "review_all"
)

// Item pairs a question with the caller's progress on it.
type Item struct {
	Question domain.Question       `json:"question"`
	Progress domain.ProgressRecord `json:"progress"`
}

// WorkingSet is the ordered list of questions for the running session.
// Position indexes the question currently presented.
type WorkingSet struct {
	Mode     Mode   `json:"mode"`
	Items    []Item `json:"items"`
	Position int    `json:"position"`
}

// Len returns the number of questions left in the set.
func (ws WorkingSet) Len() int {
	return len(ws.Items)
}

// Current returns the question at Position, or false when the set is empty.
func (ws WorkingSet) Current() (Item, bool) {
	if len(ws.Items) == 0 || ws.Position < 0 || ws.Position >= len(ws.Items) {
		return Item{}, false
	}
	return ws.Items[ws.Position], true
}

// Shuffler is the random source used to order a working set.
// *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Selector computes working sets. It is safe for concurrent use if its
// Shuffler is.
type Selector struct {
	rnd Shuffler
}

// NewSelector creates a Selector. A nil Shuffler uses the process-wide
// math/rand/v2 source.
func NewSelector(rnd Shuffler) *Selector {
	if rnd == nil {
		rnd = globalShuffler{}
	}
	return &Selector{rnd: rnd}
}

// Select builds a working set from the full snapshot of one level.
//
// Failed questions win; without any, pending questions are drilled in the same
// mode. Only when both are empty does the session switch to reviewing passed
// questions. The chosen items are shuffled on every call. An empty snapshot
// yields an empty ReviewAll set.
func (s *Selector) Select(snapshot []Item) WorkingSet {
	var failed, pending, passed []Item
	for _, it := range snapshot {
		switch {
		case it.Progress.Status == domain.StatusFailed:
			failed = append(failed, it)
		case it.Progress.IsPending():
			pending = append(pending, it)
		default:
			passed = append(passed, it)
		}
	}

	ws := WorkingSet{Mode: ModeReviewAll, Items: passed}
	switch {
	case len(failed) > 0:
		ws = WorkingSet{Mode: ModeFocusFailed, Items: failed}
	case len(pending) > 0:
		ws = WorkingSet{Mode: ModeFocusFailed, Items: pending}
	}

	s.rnd.Shuffle(len(ws.Items), func(i, j int) {
		ws.Items[i], ws.Items[j] = ws.Items[j], ws.Items[i]
	})
	return ws
}

// Advance moves the session forward after the current question was answered.
//
// snapshot is the level as stored after the submission; it refreshes the
// answered item and feeds a new selection when the set runs out.
//
//   - FocusFailed, correct: the item leaves the set and the next one takes its
//     slot. An emptied set is reselected.
//   - FocusFailed, incorrect: the item stays current and is asked again.
//   - ReviewAll: the position moves on by one and the set is reselected
//     after the last item.
//
// ws is not modified.
func (s *Selector) Advance(ws WorkingSet, correct bool, snapshot []Item) WorkingSet {
	current, ok := ws.Current()
	if !ok {
		return s.Select(snapshot)
	}
	refreshed := refresh(current, correct, snapshot)

	if ws.Mode == ModeFocusFailed {
		if !correct {
			items := append([]Item(nil), ws.Items...)
			items[ws.Position] = refreshed
			return WorkingSet{Mode: ws.Mode, Items: items, Position: ws.Position}
		}

		items := make([]Item, 0, len(ws.Items)-1)
		items = append(items, ws.Items[:ws.Position]...)
		items = append(items, ws.Items[ws.Position+1:]...)
		if len(items) == 0 {
			return s.Select(snapshot)
		}
		pos := ws.Position
		if pos >= len(items) {
			pos = len(items) - 1
		}
		return WorkingSet{Mode: ws.Mode, Items: items, Position: pos}
	}

	next := ws.Position + 1
	if next >= len(ws.Items) {
		return s.Select(snapshot)
	}
	items := append([]Item(nil), ws.Items...)
	items[ws.Position] = refreshed
	return WorkingSet{Mode: ws.Mode, Items: items, Position: next}
}

// refresh returns the stored version of it from snapshot, or it with the
// status of the latest outcome when the snapshot does not contain it.
func refresh(it Item, correct bool, snapshot []Item) Item {
	if stored, ok := find(snapshot, it.Question.ID); ok {
		return stored
	}
	it.Progress.Status = domain.StatusFromOutcome(correct)
	return it
}

func find(snapshot []Item, id uuid.UUID) (Item, bool) {
	for _, it := range snapshot {
		if it.Question.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
