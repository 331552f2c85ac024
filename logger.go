package memgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with memgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs an add operation. keys is the size of the incoming chunk.
func (l *Logger) LogAdd(ctx context.Context, keys int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"keys", keys,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"keys", keys,
		)
	}
}

// LogQuery logs a memory query, including whether the result cache served it.
func (l *Logger) LogQuery(ctx context.Context, matches int, cached bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"matches", matches,
			"cached", cached,
		)
	}
}

// LogAttend logs an attention pass over the graph.
func (l *Logger) LogAttend(ctx context.Context, nodes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "attend failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "attend completed",
			"nodes", nodes,
		)
	}
}

// LogIntegrate logs a rule integration pass.
func (l *Logger) LogIntegrate(ctx context.Context, scored int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "integrate failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "integrate completed",
			"scored", scored,
		)
	}
}

// LogProcess logs a full pipeline pass.
func (l *Logger) LogProcess(ctx context.Context, matches, nodes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "process failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "process completed",
			"matches", matches,
			"nodes", nodes,
		)
	}
}

// LogFinalize logs index finalization.
func (l *Logger) LogFinalize(ctx context.Context, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "finalize failed",
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "finalize completed",
			"records", records,
		)
	}
}
