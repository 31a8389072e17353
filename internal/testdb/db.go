//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/vocab-drill/internal/platform/postgres"
	"github.com/phrazzld/vocab-drill/internal/redact"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Database is a migrated test database. Close releases it and, when it was
// started here, terminates the container.
type Database struct {
	DB  *sql.DB
	URL string

	container *tcpostgres.PostgresContainer
}

// Start opens the database named by EnvTestDatabaseURL or starts a postgres
// container, then applies the migrations.
func Start(ctx context.Context) (*Database, error) {
	d := &Database{URL: DatabaseURL()}

	if d.URL == "" {
		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("vocab_test"),
			tcpostgres.WithUsername("vocab"),
			tcpostgres.WithPassword("vocab"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to start postgres container: %w", err)
		}
		d.container = ctr

		d.URL, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to build connection string: %w", err)
		}
	}

	db, err := postgres.Open(ctx, d.URL, 10)
	if err != nil {
		_ = d.Close()
		if IsCI() {
			slog.Error("test database unreachable", slog.String("url", redact.String(d.URL)))
		}
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	d.DB = db

	if err := postgres.Migrate(ctx, db, slog.Default()); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}
	return d, nil
}

// Close closes the connection pool and terminates a started container.
func (d *Database) Close() error {
	var errs []error
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	if d.container != nil {
		errs = append(errs, testcontainers.TerminateContainer(d.container))
	}
	return errors.Join(errs...)
}

// WithTx runs fn inside a transaction that is always rolled back, so a test
// can write freely without affecting others.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if IsCI() {
			stats := db.Stats()
			t.Logf("connection stats: open=%d in_use=%d idle=%d",
				stats.OpenConnections, stats.InUse, stats.Idle)
		}
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
