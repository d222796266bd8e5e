package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	loggerKey contextKey = "logger"
)

// NewRunID returns a short id suitable for correlating one sync run.
func NewRunID() string {
	return uuid.New().String()[:8]
}

// WithRunID attaches a fresh run id to ctx unless one is already present.
func WithRunID(ctx context.Context) context.Context {
	if RunIDFromContext(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, NewRunID())
}

// RunIDFromContext returns the run id, or "" when none is set.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a pre-configured logger in ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in ctx (or the global one) with the run id
// attached when present.
func Ctx(ctx context.Context) *zerolog.Logger {
	logger, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		logger = Logger()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With().Str("run_id", id).Logger()
	}
	return &logger
}
