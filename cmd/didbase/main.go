// Package main is the didbase command line tool.
//
// It retrieves ionospheric characteristics for a digisonde station from the
// Lowell DIDBase (or a configured raw-text mirror), caches one verified
// artifact per station month, and prints the observations nearest to each
// requested time.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"didbase/internal/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders err for the terminal, noting when the failure is
// transient and the command can simply be run again.
func formatError(err error) string {
	msg := fmt.Sprintf("error: %v", err)
	if appErr, ok := types.AsAppError(err); ok {
		if appErr.Code.Retryable() {
			msg += " (retryable: run the command again later, or with --force)"
		}
		if u := appErr.Detail("url"); u != "" {
			msg += "\n  url: " + u
		}
	}
	return msg
}

// newLogger creates a JSON slog.Logger on w. Logs go to stderr so that
// stdout carries only results.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	})
	return slog.New(handler)
}
