package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/platform/cache"
	"github.com/phrazzld/vocab-drill/internal/platform/metrics"
	"github.com/phrazzld/vocab-drill/internal/platform/storage"
	"github.com/phrazzld/vocab-drill/internal/service/auth"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	backend *storage.Backend

	cache    cache.SummaryCache
	redis    *cache.RedisSummaryCache
	metrics  *metrics.Metrics
	resolver auth.IdentityResolver
	quiz     quiz.Service
}

// newApplication wires the services on top of an open backend.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	backend *storage.Backend,
) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		backend: backend,
		cache:   cache.NopSummaryCache{},
		metrics: metrics.New(),
	}

	var err error
	app.resolver, err = auth.NewJWTResolver(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity resolver: %w", err)
	}

	if cfg.Cache.RedisURL != "" {
		ttl := time.Duration(cfg.Cache.SummaryTTLSeconds) * time.Second
		rc, err := cache.NewRedisSummaryCache(ctx, cfg.Cache.RedisURL, ttl, logger)
		if err != nil {
			// Summaries are always computable from the stores.
			logger.Warn("summary cache unavailable, serving uncached",
				slog.String("error", err.Error()))
		} else {
			app.redis = rc
			app.cache = rc
			logger.Info("summary cache enabled", slog.Duration("ttl", ttl))
		}
	}

	app.quiz = quiz.NewService(backend.Questions, backend.Progress, quiz.Options{
		PageSize: cfg.Quiz.PageSize,
		Cache:    app.cache,
		Metrics:  app.metrics,
	}, logger)

	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases the cache client and the database.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing cache client", slog.String("error", err.Error()))
		}
	}
	if app.backend != nil {
		if err := app.backend.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
