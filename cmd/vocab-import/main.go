// Command vocab-import loads vocabulary files into the question store and runs
// the maintenance jobs that keep questions, levels and progress consistent.
//
// Usage:
//
//	vocab-import <command> [flags] [args]
//
// The database is selected through the usual VOCAB_DATABASE_* settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "vocab-import: %v\n", err)
		}
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "vocab-import: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches args to a command. Results are written to stdout as JSON,
// logs and usage go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	name, rest := args[0], args[1:]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stdout)
		return nil
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr)
		return errUsage
	}
	return cmd.execute(ctx, rest, stdout, stderr)
}
