// Package logging builds the service's slog logger and carries request-scoped
// loggers through context.
//
//	logger := logging.New("info", logging.FormatJSON, os.Stderr)
//	ctx, log := logging.WithAttrs(ctx, slog.String("request_id", id))
//	logging.FromContext(ctx).InfoContext(ctx, "todo created")
//
// Error logs name the operation, the todo ID when there is one, and the full
// error chain:
//
//	logger.ErrorContext(ctx, "failed to patch todo",
//	    slog.String("operation", "PatchTodo"),
//	    slog.String("todo_id", id.String()),
//	    slog.Any("error", err),
//	)
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

type contextKey struct{}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a configured level name (case-insensitive) to its
// slog.Level. ok is false for unknown names.
func ParseLevel(name string) (level slog.Level, ok bool) {
	level, ok = levels[strings.ToLower(name)]
	return level, ok
}

// New returns a logger writing to w. Unknown levels fall back to info and
// any format other than FormatText produces JSON. Debug loggers record the
// source location. Every handler redacts credentials before writing.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: newRedactAttr(),
	}

	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithAttrs derives a child of the context's logger carrying attrs, stores
// it in the returned context and returns it.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) (context.Context, *slog.Logger) {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	child := FromContext(ctx).With(args...)
	return WithLogger(ctx, child), child
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
