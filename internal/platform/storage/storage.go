// Package storage opens the configured database backend, applies its
// migrations and builds the stores on top of it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/platform/postgres"
	"github.com/phrazzld/vocab-drill/internal/platform/sqlite"
	"github.com/phrazzld/vocab-drill/internal/store"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend is an open database with its stores.
type Backend struct {
	Driver    string
	DB        *sql.DB
	Questions store.QuestionStore
	Progress  store.ProgressStore
}

// Open connects to the database described by cfg, migrates it and returns
// the stores bound to it. The caller closes the Backend.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case DriverPostgres:
		db, err := postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("database connection established", slog.String("driver", cfg.Driver))
		return &Backend{
			Driver:    cfg.Driver,
			DB:        db,
			Questions: postgres.NewPostgresQuestionStore(db, logger),
			Progress:  postgres.NewPostgresProgressStore(db, logger),
		}, nil

	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("database connection established", slog.String("driver", cfg.Driver))
		return &Backend{
			Driver:    cfg.Driver,
			DB:        db.DB,
			Questions: sqlite.NewSQLiteQuestionStore(db, logger),
			Progress:  sqlite.NewSQLiteProgressStore(db, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Ping reports whether the database answers.
func (b *Backend) Ping(ctx context.Context) error {
	return b.DB.PingContext(ctx)
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.DB.Close()
}
