package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/importer"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
	"github.com/phrazzld/vocab-drill/internal/platform/metrics"
	"github.com/phrazzld/vocab-drill/internal/platform/storage"
	"github.com/phrazzld/vocab-drill/internal/redact"
	"github.com/phrazzld/vocab-drill/internal/service/quiz"
	"github.com/spf13/pflag"
)

// errUsage reports bad arguments; the message was already printed.
var errUsage = errors.New("usage error")

// env is what a command gets to work with once the database is open.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *storage.Backend
	importer *importer.Importer
	out      io.Writer
}

// command is one subcommand. flags registers its flags on fs and returns the
// action to run after parsing.
type command struct {
	name    string
	args    string
	summary string
	flags   func(fs *pflag.FlagSet) func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{
		name:    "import",
		args:    "FILE",
		summary: "Add the rows of a TSV or XLSX file as vocabulary questions",
		flags:   importFlags,
	},
	{
		name:    "reimport",
		args:    "FILE",
		summary: "Replace all vocabulary questions, and progress on them, with the rows of FILE",
		flags:   reimportFlags,
	},
	{
		name:    "fix-answers",
		summary: "Recompute the canonical answer of every vocabulary question",
		flags:   fixAnswersFlags,
	},
	{
		name:    "ensure-levels",
		summary: "Create level rows for every level referenced by a question",
		flags:   ensureLevelsFlags,
	},
	{
		name:    "seed-progress",
		summary: "Replace a user's progress on a level with passed and failed records",
		flags:   seedProgressFlags,
	},
	{
		name:    "reset-all",
		summary: "Delete the progress of every user",
		flags:   resetAllFlags,
	},
	{
		name:    "levels",
		summary: "Print a user's level summaries",
		flags:   levelsFlags,
	},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: vocab-import <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'vocab-import <command> --help' for the flags of a command.")
}

// execute parses the command line, opens the configured database and runs
// the action.
func (c command) execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: vocab-import %s [flags] %s\n\n%s\n\n", c.name, c.args, c.summary)
		fs.PrintDefaults()
	}
	batchSize := fs.Int("batch-size", 0, "questions per insert statement (0 uses the default)")
	action := c.flags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	cfg, err := config.LoadTool()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(stderr, cfg.Server.LogLevel).With(slog.String("command", c.name))

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

	e := &env{
		cfg:     cfg,
		logger:  log,
		backend: backend,
		out:     stdout,
		importer: importer.New(backend.DB, backend.Questions, backend.Progress, log,
			importer.WithBatchSize(*batchSize),
			importer.WithMetrics(metrics.New())),
	}
	return action(ctx, e, fs.Args())
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// oneFile returns the single positional file argument.
func oneFile(args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: expected exactly one FILE argument", errUsage)
	}
	return args[0], nil
}

// confirmed guards destructive commands behind --yes.
func confirmed(yes bool, what string) error {
	if !yes {
		return fmt.Errorf("%w: %s is destructive, pass --yes to proceed", errUsage, what)
	}
	return nil
}

func importFlags(fs *pflag.FlagSet) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		path, err := oneFile(args)
		if err != nil {
			return err
		}
		res, err := e.importer.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		return e.print(res)
	}
}

func reimportFlags(fs *pflag.FlagSet) func(context.Context, *env, []string) error {
	yes := fs.Bool("yes", false, "confirm that existing vocabulary and its progress are deleted")
	return func(ctx context.Context, e *env, args []string) error {
		path, err := oneFile(args)
		if err != nil {
			return err
		}
		if err := confirmed(*yes, "reimport"); err != nil {
			return err
		}
		parsed, err := importer.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		res, err := e.importer.Reimport(ctx, parsed)
		if err != nil {
			return fmt.Errorf("reimport %s: %w", path, err)
		}
		return e.print(res)
	}
}

func fixAnswersFlags(*pflag.FlagSet) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, _ []string) error {
		res, err := e.importer.FixAnswers(ctx)
		if err != nil {
			return err
		}
		return e.print(res)
	}
}

func ensureLevelsFlags(*pflag.FlagSet) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, _ []string) error {
		created, err := e.importer.EnsureLevels(ctx)
		if err != nil {
			return err
		}
		return e.print(map[string]int{"created": created})
	}
}

func seedProgressFlags(fs *pflag.FlagSet) func(context.Context, *env, []string) error {
	user := fs.String("user", "", "user ID (UUID)")
	level := fs.String("level", "", "level ID")
	passed := fs.Int("passed", 0, "number of questions to mark passed")
	failed := fs.Int("failed", 0, "number of questions to mark failed")
	return func(ctx context.Context, e *env, _ []string) error {
		userID, err := parseUser(*user)
		if err != nil {
			return err
		}
		res, err := e.importer.SeedProgress(ctx, importer.SeedRequest{
			UserID:  userID,
			LevelID: strings.TrimSpace(*level),
			Passed:  *passed,
			Failed:  *failed,
		})
		if err != nil {
			return err
		}
		return e.print(res)
	}
}

func resetAllFlags(fs *pflag.FlagSet) func(context.Context, *env, []string) error {
	yes := fs.Bool("yes", false, "confirm that every progress record is deleted")
	return func(ctx context.Context, e *env, _ []string) error {
		if err := confirmed(*yes, "reset-all"); err != nil {
			return err
		}
		before, after, err := e.importer.ResetAll(ctx)
		if err != nil {
			return err
		}
		return e.print(map[string]int64{"before": before, "after": after})
	}
}

func levelsFlags(fs *pflag.FlagSet) func(context.Context, *env, []string) error {
	user := fs.String("user", "", "user ID (UUID)")
	return func(ctx context.Context, e *env, _ []string) error {
		userID, err := parseUser(*user)
		if err != nil {
			return err
		}
		svc := quiz.NewService(e.backend.Questions, e.backend.Progress, quiz.Options{
			PageSize: e.cfg.Quiz.PageSize,
		}, e.logger)
		summaries, err := svc.FetchLevels(ctx, userID)
		if err != nil {
			return err
		}
		return e.print(summaries)
	}
}

func parseUser(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: --user must be a non-nil UUID", errUsage)
	}
	return id, nil
}
