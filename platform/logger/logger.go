// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
	// TaskIDKey is the context key for a background task ID
	TaskIDKey contextKey = "task_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with context values extracted.
// Supports tenant_id and task_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("tenant_id", tenantID)),
		}
	}

	if taskID, ok := ctx.Value(TaskIDKey).(string); ok && taskID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("task_id", taskID)),
		}
	}

	return newLogger
}

// SnapshotEvent logs a snapshot cache event (hit, miss, saved).
func (l *Logger) SnapshotEvent(event, dealID, kind string) {
	l.Debug("insights_snapshot",
		slog.String("event", event),
		slog.String("deal_id", dealID),
		slog.String("kind", kind),
	)
}

// GenerationFailure logs a failed text-generation round trip.
func (l *Logger) GenerationFailure(useCase, dealID string, err error, fellBack bool) {
	l.Warn("text_generation_failed",
		slog.String("use_case", useCase),
		slog.String("deal_id", dealID),
		slog.String("error", err.Error()),
		slog.Bool("fell_back", fellBack),
	)
}
