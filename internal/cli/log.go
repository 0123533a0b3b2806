// Package cli implements the constellation command-line interface.
//
// The commands share one [CLI] holding the logger and the loaded
// configuration:
//   - matrix: fetch a co-occurrence matrix and summarize it
//   - layout: compute the packed bubble layout as JSON
//   - render: render SVG, PNG, PDF, JSON or DOT artifacts
//   - explore: browse a constellation in the terminal
//   - serve: run the HTTP API
//   - import: load a corpus file into the configured store
//   - cache, config: manage the local cache and configuration file
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// also passed through context.Context so long-running steps can report
// progress.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of one operation. Not goroutine-safe.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Rendered 2 artifacts (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the attached logger, or log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
