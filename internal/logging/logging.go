package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// The process logger is swapped atomically: serve runs request handlers
// and the health monitor while Setup or a test may replace it.
var (
	current atomic.Pointer[slog.Logger]
	verbose atomic.Bool
)

func init() {
	current.Store(newLogger(os.Stderr, false, false))
}

func newLogger(w io.Writer, debug, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup installs the process logger. Debug records are emitted only when
// verbose is set; jsonOutput selects JSON lines over logfmt text. A nil w
// means stderr.
func Setup(verbose, jsonOutput bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	Replace(newLogger(w, verbose, jsonOutput))
	setVerbose(verbose)
}

func setVerbose(v bool) { verbose.Store(v) }

// Verbose reports whether debug logging is enabled.
func Verbose() bool { return verbose.Load() }

// L returns the process logger.
func L() *slog.Logger { return current.Load() }

// Replace installs l as the process logger and returns a function that
// restores the previous one.
func Replace(l *slog.Logger) (restore func()) {
	prev := current.Swap(l)
	return func() { current.Store(prev) }
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }

func Info(msg string, args ...any) { L().Info(msg, args...) }

func Warn(msg string, args ...any) { L().Warn(msg, args...) }

func Error(msg string, args ...any) { L().Error(msg, args...) }

// With returns the current logger with fixed attributes. The result does
// not follow later calls to Setup.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
