package flog

import (
	"context"
	"log/slog"
	"os"
)

// Attr is a re-export of slog.Attr so callers building attributes do not
// need to import log/slog themselves.
type Attr = slog.Attr

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Err builds an error attribute.
func Err(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Any builds an attribute from an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Logger is the structured-logging interface every flowkit component
// depends on. Debug is used for internal diagnostics (broken-promise
// resolution, dropped router keys); Warn for conditions a caller should
// probably look at but that the library itself recovers from.
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...Attr)
	Warn(ctx context.Context, msg string, attrs ...Attr)
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	sl *slog.Logger
}

// New wraps an *slog.Logger. A nil logger falls back to slog.Default().
func New(sl *slog.Logger) Logger {
	if sl == nil {
		sl = slog.Default()
	}
	return &slogLogger{sl: sl}
}

// NewText builds a Logger writing text-formatted records to os.Stderr at
// the given level.
func NewText(level slog.Level) Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return New(slog.New(h))
}

func (l *slogLogger) Debug(ctx context.Context, msg string, attrs ...Attr) {
	l.sl.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, attrs ...Attr) {
	l.sl.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// Noop is a Logger that discards everything. It is the zero-cost default
// used when a component is constructed without an explicit logger.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...Attr) {}
func (noopLogger) Warn(context.Context, string, ...Attr)  {}
