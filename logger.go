package catalogo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with catalog-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCatalog adds the catalog id to the logger.
func (l *Logger) WithCatalog(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("catalog", id),
	}
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// LogCatalog logs a catalog operation for one object.
func (l *Logger) LogCatalog(ctx context.Context, uid string, rid uint32, changed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "catalog object failed",
			"uid", uid,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "catalog object completed",
			"uid", uid,
			"rid", rid,
			"changed", changed,
		)
	}
}

// LogUncatalog logs an uncatalog operation.
func (l *Logger) LogUncatalog(ctx context.Context, uid string, found bool) {
	if !found {
		l.ErrorContext(ctx, "uncatalog object failed: unknown uid",
			"uid", uid,
		)
		return
	}
	l.DebugContext(ctx, "uncatalog object completed",
		"uid", uid,
	)
}

// LogIndex logs the maintenance of one index, e.g. an index rebuild.
func (l *Logger) LogIndex(ctx context.Context, name string, objects int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index rebuild failed",
			"index", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index rebuilt",
			"index", name,
			"objects", objects,
			"duration", d,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, key string, results int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"query", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"query", key,
			"results", results,
			"duration", d,
		)
	}
}

// LogSlowQuery logs a search that exceeded the long query threshold.
func (l *Logger) LogSlowQuery(ctx context.Context, key string, d, threshold time.Duration) {
	l.WarnContext(ctx, "slow query",
		"query", key,
		"duration", d,
		"threshold", threshold,
	)
}

// LogSnapshot logs a snapshot save or restore.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op+" completed",
			"name", name,
		)
	}
}
