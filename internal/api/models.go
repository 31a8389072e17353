package api

import (
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
)

// SubmitProgressRequest is the body of POST /api/progress.
type SubmitProgressRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid"`
	Answer     string `json:"answer"      validate:"max=500"`
	// IsCorrect is the client's own verdict. When absent the server grades
	// the answer.
	IsCorrect *bool `json:"is_correct"`
}

// ResetProgressRequest is the body of POST /api/progress/reset.
type ResetProgressRequest struct {
	Level string `json:"level" validate:"required,max=64"`
}

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Correct *bool  `json:"correct,omitempty"`
	Deleted *int64 `json:"deleted,omitempty"`
	// Progress is the stored record after a submission.
	Progress *domain.ProgressRecord `json:"progress,omitempty"`
}

// QuestionResponse pairs a question with the caller's progress on it.
type QuestionResponse = session.Item

// WorkingSetResponse is the body of GET /api/session.
type WorkingSetResponse struct {
	Level    string         `json:"level"`
	Mode     session.Mode   `json:"mode"`
	Current  *session.Item  `json:"current,omitempty"`
	Items    []session.Item `json:"items"`
	Position int            `json:"position"`
}

func workingSetToResponse(levelID string, ws session.WorkingSet) WorkingSetResponse {
	resp := WorkingSetResponse{
		Level:    levelID,
		Mode:     ws.Mode,
		Items:    ws.Items,
		Position: ws.Position,
	}
	if resp.Items == nil {
		resp.Items = []session.Item{}
	}
	if current, ok := ws.Current(); ok {
		resp.Current = &current
	}
	return resp
}
