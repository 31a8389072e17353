package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome state of one (user, question) pair.
type Status string

const (
	// StatusPending means no submission has been stored for the pair.
	StatusPending Status = "pending"
	// StatusPassed means the most recent submission was correct.
	StatusPassed Status = "passed"
	// StatusFailed means the most recent submission was incorrect.
	StatusFailed Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPassed, StatusFailed:
		return true
	}
	return false
}

// StatusFromOutcome maps a graded submission to the status it produces.
func StatusFromOutcome(correct bool) Status {
	if correct {
		return StatusPassed
	}
	return StatusFailed
}

var (
	// ErrProgressUserIDEmpty is returned when a progress record has no user.
	ErrProgressUserIDEmpty = errors.New("progress user ID cannot be empty")

	// ErrProgressQuestionIDEmpty is returned when a progress record has no question.
	ErrProgressQuestionIDEmpty = errors.New("progress question ID cannot be empty")

	// ErrProgressNegativeAttempts is returned when attempts is below zero.
	ErrProgressNegativeAttempts = errors.New("progress attempts cannot be negative")
)

// ProgressRecord tracks a user's latest outcome for one question. A pair with
// no stored record is Pending with zero attempts. LevelID and CategoryID are
// copied from the question when the record is written.
type ProgressRecord struct {
	UserID          uuid.UUID `json:"user_id"           db:"user_id"`
	QuestionID      uuid.UUID `json:"question_id"       db:"question_id"`
	LevelID         string    `json:"level_id"          db:"level_id"`
	CategoryID      string    `json:"category_id"       db:"category_id"`
	Status          Status    `json:"status"            db:"status"`
	Attempts        int       `json:"attempts"          db:"attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at" db:"last_attempted_at"`
	LastAnswer      string    `json:"last_answer"       db:"last_answer"`
}

// PendingRecord returns the implicit record for a pair that has never been answered.
func PendingRecord(userID uuid.UUID, q *Question) ProgressRecord {
	return ProgressRecord{
		UserID:     userID,
		QuestionID: q.ID,
		LevelID:    q.LevelID,
		CategoryID: q.CategoryID,
		Status:     StatusPending,
	}
}

// Apply returns the record after one submission. Attempts always grows by
// one and the status always follows the latest outcome, so Passed can fall
// back to Failed. An empty rawAnswer keeps the previous LastAnswer.
//
// Stores must perform the equivalent mutation atomically; this function is
// the reference for that mutation and for in-memory callers.
func (p ProgressRecord) Apply(correct bool, rawAnswer string, now time.Time) ProgressRecord {
	next := p
	next.Attempts = p.Attempts + 1
	next.Status = StatusFromOutcome(correct)
	if rawAnswer != "" {
		next.LastAnswer = rawAnswer
	}
	next.LastAttemptedAt = now.UTC()
	return next
}

// IsPending reports whether the record represents an unanswered question.
func (p ProgressRecord) IsPending() bool {
	return p.Status == StatusPending || p.Status == ""
}

// Validate checks the invariants of a stored record.
func (p *ProgressRecord) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrProgressUserIDEmpty
	}
	if p.QuestionID == uuid.Nil {
		return ErrProgressQuestionIDEmpty
	}
	if p.Attempts < 0 {
		return ErrProgressNegativeAttempts
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	return nil
}
