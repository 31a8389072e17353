// Command drill runs a fill-in-the-blank session for one level in the
// terminal, reading answers from stdin and recording them like the HTTP API
// does.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/platform/storage"
	"github.com/phrazzld/vocab-drill/internal/redact"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "drill: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "drill: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("drill", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	user := fs.String("user", "", "user ID (UUID) the answers are recorded for")
	level := fs.String("level", "", "level to drill; omit to list levels")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	userID, err := uuid.Parse(strings.TrimSpace(*user))
	if err != nil || userID == uuid.Nil {
		return fmt.Errorf("%w: --user must be a non-nil UUID", errUsage)
	}

	cfg, err := config.LoadTool()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(stderr, cfg.Server.LogLevel)

	backend, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	svc := quiz.NewService(backend.Questions, backend.Progress, quiz.Options{PageSize: cfg.Quiz.PageSize}, log)
	d := newDrill(svc, userID, stdin, stdout)

	levelID := strings.TrimSpace(*level)
	if levelID == "" {
		return d.listLevels(ctx)
	}
	return d.run(ctx, levelID)
}
