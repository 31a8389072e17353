package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryVocabulary is the category assigned to every imported vocabulary row.
const CategoryVocabulary = "vocabulary"

// Question-specific validation errors
var (
	// ErrQuestionIDEmpty is returned when a question ID is empty or nil.
	ErrQuestionIDEmpty = errors.New("question ID cannot be empty")

	// ErrQuestionWordEmpty is returned when the vocabulary word is missing.
	ErrQuestionWordEmpty = errors.New("question german word cannot be empty")

	// ErrQuestionLevelEmpty is returned when a question is not assigned to a level.
	ErrQuestionLevelEmpty = errors.New("question level cannot be empty")

	// ErrQuestionAnswerEmpty is returned when the canonical answer is empty.
	ErrQuestionAnswerEmpty = errors.New("question canonical answer cannot be empty")
)

// Question is a single fill-in-the-blank exercise. BlankSentence is a copy of
// FullSentence with the answer span replaced by a placeholder; CanonicalAnswer
// is derived from the pair once, at import time.
type Question struct {
	ID                 uuid.UUID `json:"id"                  db:"id"`
	GermanWord         string    `json:"german_word"         db:"german_word"`
	EnglishTranslation string    `json:"english_translation" db:"english_translation"`
	FullSentence       string    `json:"full_sentence"       db:"full_sentence"`
	BlankSentence      string    `json:"blank_sentence"      db:"blank_sentence"`
	EnglishSentence    string    `json:"english_sentence"    db:"english_sentence"`
	LevelID            string    `json:"level_id"            db:"level_id"`
	CategoryID         string    `json:"category_id"         db:"category_id"`
	CanonicalAnswer    string    `json:"canonical_answer"    db:"canonical_answer"`
	CreatedAt          time.Time `json:"created_at"          db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"          db:"updated_at"`
}

// NewQuestion creates a validated Question with a fresh ID. An empty category
// defaults to CategoryVocabulary.
func NewQuestion(
	germanWord, englishTranslation, fullSentence, blankSentence, englishSentence, levelID, categoryID, canonicalAnswer string,
) (*Question, error) {
	if categoryID == "" {
		categoryID = CategoryVocabulary
	}

	now := time.Now().UTC()
	q := &Question{
		ID:                 uuid.New(),
		GermanWord:         strings.TrimSpace(germanWord),
		EnglishTranslation: strings.TrimSpace(englishTranslation),
		FullSentence:       strings.TrimSpace(fullSentence),
		BlankSentence:      strings.TrimSpace(blankSentence),
		EnglishSentence:    strings.TrimSpace(englishSentence),
		LevelID:            strings.TrimSpace(levelID),
		CategoryID:         categoryID,
		CanonicalAnswer:    canonicalAnswer,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks the fields every stored question must have.
func (q *Question) Validate() error {
	if q.ID == uuid.Nil {
		return ErrQuestionIDEmpty
	}
	if q.GermanWord == "" {
		return ErrQuestionWordEmpty
	}
	if q.LevelID == "" {
		return ErrQuestionLevelEmpty
	}
	if q.CanonicalAnswer == "" {
		return fmt.Errorf("%w (word %q)", ErrQuestionAnswerEmpty, q.GermanWord)
	}
	return nil
}
