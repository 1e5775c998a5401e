// SPDX-License-Identifier: MIT

// Package cli implements the ctmctree command-line interface.
//
// # Commands
//
//   - eval: weighted log-likelihood and requested edge derivatives of a model
//   - marginals: per-node posterior state distributions for one site
//   - check: validate a model and build its state space, processes and tree
//
// Models are read as JSON, YAML or TOML (by extension, or --format when
// read from stdin). Results are printed to stdout as JSON; logs go to
// stderr.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging; otherwise
// the level comes from the [log] table of --config. Loggers are passed
// through context.Context.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() if none
// is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
