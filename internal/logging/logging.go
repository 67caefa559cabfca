// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Options select the log level and an optional JSON log file.
type Options struct {
	Verbose bool
	// File, when set, receives every record as JSON in addition to the
	// console.
	File string
}

// Setup installs the default logger. The returned closer flushes and closes
// the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	level := &slog.LevelVar{}
	level.Set(slog.LevelInfo)
	if opts.Verbose {
		level.Set(slog.LevelDebug)
	}

	console := tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000",
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: dropEmpty,
	})

	if opts.File == "" {
		slog.SetDefault(slog.New(console))
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(Fanout(console, file)))
	return f, nil
}

// DefaultFile returns a timestamped log file name inside dir.
func DefaultFile(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("wikiblob_%s.log", now.Format("20060102_150405")))
}

func dropEmpty(groups []string, a slog.Attr) slog.Attr {
	switch v := a.Value.Any().(type) {
	case string:
		if v == "" {
			return slog.Attr{}
		}
	case nil:
		return slog.Attr{}
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout returns a handler passing every record to all handlers.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
