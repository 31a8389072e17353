package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProgressRecordApply(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &Question{ID: uuid.New(), LevelID: "A1-L1", CategoryID: CategoryVocabulary}
	pending := PendingRecord(uuid.New(), q)

	first := pending.Apply(true, "Hund", now)
	if first.Attempts != 1 {
		t.Errorf("Expected attempts 1 after first submission, got %d", first.Attempts)
	}
	if first.Status != StatusPassed {
		t.Errorf("Expected status passed, got %s", first.Status)
	}
	if first.LastAnswer != "Hund" {
		t.Errorf("Expected last answer Hund, got %q", first.LastAnswer)
	}
	if !first.LastAttemptedAt.Equal(now) {
		t.Errorf("Expected last attempted %v, got %v", now, first.LastAttemptedAt)
	}

	// passed is not sticky
	second := first.Apply(false, "", now.Add(time.Minute))
	if second.Attempts != 2 {
		t.Errorf("Expected attempts 2, got %d", second.Attempts)
	}
	if second.Status != StatusFailed {
		t.Errorf("Expected status failed after incorrect answer, got %s", second.Status)
	}
	if second.LastAnswer != "Hund" {
		t.Errorf("Expected empty answer to keep previous value, got %q", second.LastAnswer)
	}

	third := second.Apply(true, "Hunde", now.Add(2*time.Minute))
	if third.Status != StatusPassed || third.Attempts != 3 || third.LastAnswer != "Hunde" {
		t.Errorf("Unexpected record after recovery: %+v", third)
	}

	if pending.Attempts != 0 || pending.Status != StatusPending {
		t.Errorf("Apply must not mutate the receiver, got %+v", pending)
	}
}

func TestPendingRecord(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	q := &Question{ID: uuid.New(), LevelID: "B1-L3", CategoryID: CategoryVocabulary}
	rec := PendingRecord(userID, q)

	if !rec.IsPending() {
		t.Error("Expected pending record")
	}
	if rec.UserID != userID || rec.QuestionID != q.ID || rec.LevelID != "B1-L3" {
		t.Errorf("Unexpected pending record %+v", rec)
	}
	if rec.Attempts != 0 {
		t.Errorf("Expected zero attempts, got %d", rec.Attempts)
	}
}

func TestProgressRecordValidate(t *testing.T) {
	t.Parallel()

	valid := ProgressRecord{UserID: uuid.New(), QuestionID: uuid.New(), Status: StatusFailed, Attempts: 1}

	tests := []struct {
		name    string
		mutate  func(p *ProgressRecord)
		wantErr error
	}{
		{"valid", func(p *ProgressRecord) {}, nil},
		{"missing user", func(p *ProgressRecord) { p.UserID = uuid.Nil }, ErrProgressUserIDEmpty},
		{"missing question", func(p *ProgressRecord) { p.QuestionID = uuid.Nil }, ErrProgressQuestionIDEmpty},
		{"negative attempts", func(p *ProgressRecord) { p.Attempts = -1 }, ErrProgressNegativeAttempts},
		{"unknown status", func(p *ProgressRecord) { p.Status = "skipped" }, ErrInvalidStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := valid
			tc.mutate(&rec)
			err := rec.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStatusFromOutcome(t *testing.T) {
	t.Parallel()

	if StatusFromOutcome(true) != StatusPassed {
		t.Error("Expected correct answer to map to passed")
	}
	if StatusFromOutcome(false) != StatusFailed {
		t.Error("Expected incorrect answer to map to failed")
	}
	if Status("").Valid() {
		t.Error("Expected empty status to be invalid")
	}
}
