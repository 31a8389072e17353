// Package quiz orchestrates the drill core around the stores: it pages
// question and progress data into level summaries, merges a level's
// questions with the caller's progress, applies submissions and resets, and
// builds working sets for a session.
package quiz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
)

// Submission is one answer sent by a client.
type Submission struct {
	QuestionID uuid.UUID
	// Answer is the raw text the learner typed. It is stored as the last
	// answer when non-empty.
	Answer string
	// IsCorrect is the client's own verdict. When nil the answer is graded
	// against the question's canonical answer.
	IsCorrect *bool
}

// SubmitResult is the stored state after a submission.
type SubmitResult struct {
	Correct  bool                  `json:"correct"`
	Progress domain.ProgressRecord `json:"progress"`
}

// Service exposes the quiz operations for one caller at a time. Every method
// takes the caller's user ID explicitly.
type Service interface {
	// FetchLevels returns one summary per level that has at least one
	// question, ordered by level ID.
	FetchLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelSummary, error)

	// LevelSummary returns the summary of a single level. An unknown level
	// yields an all-zero summary.
	LevelSummary(ctx context.Context, userID uuid.UUID, levelID string) (domain.LevelSummary, error)

	// FetchQuestions returns every question of a level with the caller's
	// progress on it, ordered by question ID. Unanswered questions carry a
	// pending record. An unknown level yields an empty list.
	FetchQuestions(ctx context.Context, userID uuid.UUID, levelID string) ([]session.Item, error)

	// Session selects a fresh working set for a level.
	Session(ctx context.Context, userID uuid.UUID, levelID string) (session.WorkingSet, error)

	// Advance moves a working set on after its current question was answered,
	// using the level as stored after the submission.
	Advance(
		ctx context.Context,
		userID uuid.UUID,
		levelID string,
		ws session.WorkingSet,
		correct bool,
	) (session.WorkingSet, error)

	// SubmitAnswer records one submission atomically and returns the new
	// record. Returns ErrQuestionNotFound for unknown questions, in which
	// case nothing is written.
	SubmitAnswer(ctx context.Context, userID uuid.UUID, sub Submission) (*SubmitResult, error)

	// ResetProgress deletes the caller's progress for every question of a
	// level and returns how many records were removed. Other users and other
	// levels are untouched.
	ResetProgress(ctx context.Context, userID uuid.UUID, levelID string) (int64, error)
}

// Common error types for Service
var (
	// ErrLevelRequired indicates an operation was called without a level.
	ErrLevelRequired = errors.New("level is required")

	// ErrQuestionRequired indicates a submission without a question ID.
	ErrQuestionRequired = errors.New("question id is required")

	// ErrUserRequired indicates an operation was called without a caller.
	ErrUserRequired = errors.New("user id is required")

	// ErrQuestionNotFound indicates the submitted question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
)

// ServiceError wraps failures of the quiz service with the operation that
// produced them. Store errors stay reachable through Unwrap.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "fetch_levels", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
