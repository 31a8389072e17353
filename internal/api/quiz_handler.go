package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/api/shared"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/redact"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
)

// QuizHandler serves the drill endpoints under /api. Every route expects the
// auth middleware to have placed the caller in the request context.
type QuizHandler struct {
	service quiz.Service
	logger  *slog.Logger
}

// NewQuizHandler creates a QuizHandler.
func NewQuizHandler(service quiz.Service, logger *slog.Logger) *QuizHandler {
	if service == nil {
		panic("service cannot be nil for QuizHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for QuizHandler")
	}
	return &QuizHandler{
		service: service,
		logger:  logger.With(slog.String("component", "quiz_handler")),
	}
}

// caller returns the authenticated user or writes a 401.
func (h *QuizHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		logger.FromContextOr(r.Context(), h.logger).Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// levelParam returns the trimmed level query parameter or writes a 400.
func levelParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	level := strings.TrimSpace(r.URL.Query().Get("level"))
	if level == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Level is required")
		return "", false
	}
	return level, true
}

// GetLevels handles GET /api/levels.
func (h *QuizHandler) GetLevels(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.FetchLevels(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load levels")
		return
	}
	if summaries == nil {
		summaries = []domain.LevelSummary{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summaries)
}

// GetQuestions handles GET /api/questions?level=X.
func (h *QuizHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	level, ok := levelParam(w, r)
	if !ok {
		return
	}

	items, err := h.service.FetchQuestions(r.Context(), userID, level)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load questions")
		return
	}
	if items == nil {
		items = []session.Item{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

// GetSession handles GET /api/session?level=X.
func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	level, ok := levelParam(w, r)
	if !ok {
		return
	}

	ws, err := h.service.Session(r.Context(), userID, level)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, workingSetToResponse(level, ws))
}

// SubmitProgress handles POST /api/progress.
func (h *QuizHandler) SubmitProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOr(r.Context(), h.logger)
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SubmitProgressRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.service.SubmitAnswer(r.Context(), userID, quiz.Submission{
		QuestionID: uuid.MustParse(req.QuestionID),
		Answer:     req.Answer,
		IsCorrect:  req.IsCorrect,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SuccessResponse{
		Success:  true,
		Correct:  &result.Correct,
		Progress: &result.Progress,
	})
}

// ResetProgress handles POST /api/progress/reset.
func (h *QuizHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOr(r.Context(), h.logger)
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req ResetProgressRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Level = strings.TrimSpace(req.Level)
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	deleted, err := h.service.ResetProgress(r.Context(), userID, req.Level)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset progress")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SuccessResponse{Success: true, Deleted: &deleted})
}
