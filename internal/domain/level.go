package domain

import "math"

// Level is a named group of questions, one lesson of the course.
type Level struct {
	ID         string `json:"id"          db:"id"`
	Title      string `json:"title"       db:"title"`
	OrderIndex int    `json:"order_index" db:"order_index"`
}

// LevelSummary is the derived progress of one user through one level.
// It is computed on read and never stored.
type LevelSummary struct {
	LevelID    string `json:"level"`
	Total      int    `json:"total"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Remaining  int    `json:"remaining"`
	Percentage int    `json:"percentage"`
}

// NewLevelSummary derives remaining and percentage from the raw counts.
// Remaining never goes below zero and the percentage of an empty level is 0.
func NewLevelSummary(levelID string, total, passed, failed int) LevelSummary {
	remaining := total - passed - failed
	if remaining < 0 {
		remaining = 0
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(passed) * 100 / float64(total)))
	}

	return LevelSummary{
		LevelID:    levelID,
		Total:      total,
		Passed:     passed,
		Failed:     failed,
		Remaining:  remaining,
		Percentage: percentage,
	}
}
