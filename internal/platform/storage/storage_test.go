package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/domain"
	"github.com/phrazzld/vocab-drill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, err := Open(ctx, config.DatabaseConfig{
		Driver: DriverSQLite,
		URL:    "sqlite://" + filepath.Join(t.TempDir(), "vocab.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.Ping(ctx))
	assert.Equal(t, DriverSQLite, b.Driver)

	_, err = b.Questions.EnsureLevels(ctx, []string{"A1-L1"})
	require.NoError(t, err)
	q, err := domain.NewQuestion("Haus", "house", "", "", "", "A1-L1", "", "Haus")
	require.NoError(t, err)
	require.NoError(t, b.Questions.Create(ctx, q))

	rec, err := b.Progress.RecordSubmission(ctx, store.Submission{UserID: uuid.New(), QuestionID: q.ID, Correct: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
}

func TestOpenReopensMigratedDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: DriverSQLite, URL: filepath.Join(t.TempDir(), "vocab.db")}

	first, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", URL: "x"}, nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpenClosedPingFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b, err := Open(ctx, config.DatabaseConfig{Driver: DriverSQLite, URL: filepath.Join(t.TempDir(), "v.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	assert.Error(t, b.Ping(ctx))
}
