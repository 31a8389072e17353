package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/api/shared"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/domain/session"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
	"github.com/phrazzld/vocab-drill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuizService struct {
	mock.Mock
}

var _ quiz.Service = (*mockQuizService)(nil)

func (m *mockQuizService) FetchLevels(ctx context.Context, userID uuid.UUID) ([]domain.LevelSummary, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]domain.LevelSummary)
	return s, args.Error(1)
}

func (m *mockQuizService) LevelSummary(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
) (domain.LevelSummary, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Get(0).(domain.LevelSummary), args.Error(1)
}

func (m *mockQuizService) FetchQuestions(ctx context.Context, userID uuid.UUID, levelID string) ([]session.Item, error) {
	args := m.Called(ctx, userID, levelID)
	items, _ := args.Get(0).([]session.Item)
	return items, args.Error(1)
}

func (m *mockQuizService) Session(ctx context.Context, userID uuid.UUID, levelID string) (session.WorkingSet, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Get(0).(session.WorkingSet), args.Error(1)
}

func (m *mockQuizService) Advance(
	ctx context.Context,
	userID uuid.UUID,
	levelID string,
	ws session.WorkingSet,
	correct bool,
) (session.WorkingSet, error) {
	args := m.Called(ctx, userID, levelID, ws, correct)
	return args.Get(0).(session.WorkingSet), args.Error(1)
}

func (m *mockQuizService) SubmitAnswer(
	ctx context.Context,
	userID uuid.UUID,
	sub quiz.Submission,
) (*quiz.SubmitResult, error) {
	args := m.Called(ctx, userID, sub)
	res, _ := args.Get(0).(*quiz.SubmitResult)
	return res, args.Error(1)
}

func (m *mockQuizService) ResetProgress(ctx context.Context, userID uuid.UUID, levelID string) (int64, error) {
	args := m.Called(ctx, userID, levelID)
	return args.Get(0).(int64), args.Error(1)
}

func newHandler(t *testing.T) (*QuizHandler, *mockQuizService, *logger.TestLogBuffer) {
	t.Helper()
	svc := &mockQuizService{}
	log, buf := logger.NewTestLogger()
	return NewQuizHandler(svc, log), svc, buf
}

// call runs handler with userID in the context. uuid.Nil means no caller.
func call(handler http.HandlerFunc, method, target, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := shared.WithTraceID(req.Context(), "trace-test")
	if userID != uuid.Nil {
		ctx = shared.WithUserID(ctx, userID)
	}
	rec := httptest.NewRecorder()
	handler(rec, req.WithContext(ctx))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetLevels(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()

	summaries := []domain.LevelSummary{domain.NewLevelSummary("A1-L1", 4, 1, 1)}
	svc.On("FetchLevels", mock.Anything, user).Return(summaries, nil)

	rec := call(h.GetLevels, http.MethodGet, "/api/levels", "", user)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.LevelSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, summaries, got)
	assert.Contains(t, rec.Body.String(), `"level":"A1-L1"`)
	assert.Contains(t, rec.Body.String(), `"percentage":25`)
}

func TestGetLevelsEmptyIsArray(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()
	svc.On("FetchLevels", mock.Anything, user).Return(nil, nil)

	rec := call(h.GetLevels, http.MethodGet, "/api/levels", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandlersRequireCaller(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)

	for name, handler := range map[string]http.HandlerFunc{
		"levels":    h.GetLevels,
		"questions": h.GetQuestions,
		"session":   h.GetSession,
		"submit":    h.SubmitProgress,
		"reset":     h.ResetProgress,
	} {
		t.Run(name, func(t *testing.T) {
			rec := call(handler, http.MethodGet, "/api/x?level=A1", "", uuid.Nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "trace-test", decodeError(t, rec).TraceID)
		})
	}
	svc.AssertNotCalled(t, "FetchLevels", mock.Anything, mock.Anything)
}

func TestGetQuestions(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()

	q, err := domain.NewQuestion("Haus", "house", "Das Haus.", "Das __.", "", "A1-L1", "", "Haus")
	require.NoError(t, err)
	items := []session.Item{{Question: *q, Progress: domain.PendingRecord(user, q)}}
	svc.On("FetchQuestions", mock.Anything, user, "A1-L1").Return(items, nil)
	svc.On("FetchQuestions", mock.Anything, user, "Z9").Return(nil, nil)

	rec := call(h.GetQuestions, http.MethodGet, "/api/questions?level=+A1-L1+", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []session.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, q.ID, got[0].Question.ID)
	assert.Equal(t, domain.StatusPending, got[0].Progress.Status)

	rec = call(h.GetQuestions, http.MethodGet, "/api/questions?level=Z9", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = call(h.GetQuestions, http.MethodGet, "/api/questions", "", user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Level is required", decodeError(t, rec).Error)
}

func TestGetSession(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()

	q, err := domain.NewQuestion("Haus", "house", "", "", "", "A1-L1", "", "Haus")
	require.NoError(t, err)
	ws := session.WorkingSet{
		Mode:  session.ModeFocusFailed,
		Items: []session.Item{{Question: *q, Progress: domain.PendingRecord(user, q)}},
	}
	svc.On("Session", mock.Anything, user, "A1-L1").Return(ws, nil)
	svc.On("Session", mock.Anything, user, "empty").Return(session.WorkingSet{Mode: session.ModeReviewAll}, nil)

	rec := call(h.GetSession, http.MethodGet, "/api/session?level=A1-L1", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var got WorkingSetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "A1-L1", got.Level)
	assert.Equal(t, session.ModeFocusFailed, got.Mode)
	require.NotNil(t, got.Current)
	assert.Equal(t, q.ID, got.Current.Question.ID)

	rec = call(h.GetSession, http.MethodGet, "/api/session?level=empty", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
	assert.NotContains(t, rec.Body.String(), `"current"`)
}

func TestSubmitProgress(t *testing.T) {
	t.Parallel()
	user := uuid.New()
	questionID := uuid.New()
	yes := true

	tests := []struct {
		name        string
		body        string
		setup       func(*mockQuizService)
		wantStatus  int
		wantMessage string
	}{
		{
			name: "graded by server",
			body: fmt.Sprintf(`{"question_id":%q,"answer":"Haus"}`, questionID),
			setup: func(m *mockQuizService) {
				m.On("SubmitAnswer", mock.Anything, user, quiz.Submission{QuestionID: questionID, Answer: "Haus"}).
					Return(&quiz.SubmitResult{Correct: true, Progress: domain.ProgressRecord{Attempts: 1}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "client verdict forwarded",
			body: fmt.Sprintf(`{"question_id":%q,"answer":"x","is_correct":true}`, questionID),
			setup: func(m *mockQuizService) {
				m.On("SubmitAnswer", mock.Anything, user, quiz.Submission{QuestionID: questionID, Answer: "x", IsCorrect: &yes}).
					Return(&quiz.SubmitResult{Correct: true}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "malformed json",
			body:        `{"question_id":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request format",
		},
		{
			name:        "unknown field",
			body:        fmt.Sprintf(`{"question_id":%q,"score":3}`, questionID),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request format",
		},
		{
			name:        "empty body",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request format",
		},
		{
			name:        "missing question",
			body:        `{"answer":"Haus"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid question_id: required field",
		},
		{
			name:        "question not a uuid",
			body:        `{"question_id":"42"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid question_id: must be a UUID",
		},
		{
			name: "unknown question",
			body: fmt.Sprintf(`{"question_id":%q,"answer":"Haus"}`, questionID),
			setup: func(m *mockQuizService) {
				m.On("SubmitAnswer", mock.Anything, user, mock.Anything).
					Return(nil, quiz.NewServiceError("submit_answer", "question not found",
						fmt.Errorf("%w: %w", quiz.ErrQuestionNotFound, store.ErrQuestionNotFound)))
			},
			wantStatus:  http.StatusNotFound,
			wantMessage: "Question not found",
		},
		{
			name: "store failure",
			body: fmt.Sprintf(`{"question_id":%q,"answer":"Haus"}`, questionID),
			setup: func(m *mockQuizService) {
				m.On("SubmitAnswer", mock.Anything, user, mock.Anything).
					Return(nil, errors.New("pq: connection to 10.0.0.9:5432 refused"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to submit answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, svc, logs := newHandler(t)
			if tt.setup != nil {
				tt.setup(svc)
			}

			rec := call(h.SubmitProgress, http.MethodPost, "/api/progress", tt.body, user)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				var got SuccessResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.True(t, got.Success)
				require.NotNil(t, got.Correct)
				assert.True(t, *got.Correct)
				return
			}
			assert.Equal(t, tt.wantMessage, decodeError(t, rec).Error)
			assert.NotContains(t, rec.Body.String(), "10.0.0.9")
			assert.NotContains(t, logs.String(), "10.0.0.9")
		})
	}
}

func TestResetProgress(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()
	svc.On("ResetProgress", mock.Anything, user, "A1-L1").Return(int64(3), nil)

	rec := call(h.ResetProgress, http.MethodPost, "/api/progress/reset", `{"level":" A1-L1 "}`, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deleted":3}`, rec.Body.String())

	rec = call(h.ResetProgress, http.MethodPost, "/api/progress/reset", `{"level":"   "}`, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid level: required field", decodeError(t, rec).Error)

	svc.AssertNumberOfCalls(t, "ResetProgress", 1)
}

func TestResetProgressZeroDeletedIsReported(t *testing.T) {
	t.Parallel()
	h, svc, _ := newHandler(t)
	user := uuid.New()
	svc.On("ResetProgress", mock.Anything, user, "A1-L1").Return(int64(0), nil)

	rec := call(h.ResetProgress, http.MethodPost, "/api/progress/reset", `{"level":"A1-L1"}`, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deleted":0}`, rec.Body.String())
}

func TestNewQuizHandlerPanics(t *testing.T) {
	t.Parallel()
	log, _ := logger.NewTestLogger()
	assert.Panics(t, func() { NewQuizHandler(nil, log) })
	assert.Panics(t, func() { NewQuizHandler(&mockQuizService{}, nil) })
}

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{quiz.NewServiceError("fetch_levels", "missing caller", quiz.ErrUserRequired), http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", quiz.ErrQuestionNotFound), http.StatusNotFound},
		{store.ErrLevelNotFound, http.StatusNotFound},
		{quiz.ErrLevelRequired, http.StatusBadRequest},
		{store.NewStoreError("question", "create", "bad", store.ErrInvalidEntity), http.StatusBadRequest},
		{store.ErrDuplicate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err), "%v", tt.err)
	}
}

func TestGetSafeErrorMessageNeverEchoes(t *testing.T) {
	t.Parallel()
	err := errors.New("SELECT secret FROM users")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(err))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Question not found", GetSafeErrorMessage(store.ErrQuestionNotFound))
}
