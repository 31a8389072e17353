package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/vocab-drill/internal/api"
	apiMiddleware "github.com/phrazzld/vocab-drill/internal/api/middleware"
	"github.com/phrazzld/vocab-drill/internal/api/shared"
	"github.com/phrazzld/vocab-drill/internal/redact"
)

// setupRouter builds the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)
	if secs := app.config.Server.RequestTimeoutSeconds; secs > 0 {
		r.Use(middleware.Timeout(time.Duration(secs) * time.Second))
	}

	quizHandler := api.NewQuizHandler(app.quiz, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.resolver)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/levels", quizHandler.GetLevels)
		r.Get("/questions", quizHandler.GetQuestions)
		r.Get("/session", quizHandler.GetSession)
		r.Post("/progress", quizHandler.SubmitProgress)
		r.Post("/progress/reset", quizHandler.ResetProgress)
	})

	r.Get("/health", app.health)
	r.Handle("/metrics", app.metrics.Handler())

	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}

// health reports 503 when the database does not answer. A failing cache only
// degrades the report.
func (app *application) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := app.backend.Ping(ctx); err != nil {
		app.logger.Error("database health check failed", slog.String("error", redact.Error(err)))
		resp.Status, resp.Database = "unavailable", "unreachable"
		status = http.StatusServiceUnavailable
	}
	if app.redis != nil {
		resp.Cache = "ok"
		if err := app.redis.HealthCheck(ctx); err != nil {
			resp.Cache = "degraded"
		}
	}
	shared.RespondWithJSON(w, r, status, resp)
}
