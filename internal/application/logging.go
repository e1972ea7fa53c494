package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/reservation-engine/internal/logging"
	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/recurrence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNothingToUndo):
		return "nothing_to_undo"
	case errors.Is(err, ErrNothingToRedo):
		return "nothing_to_redo"
	case errors.Is(err, persistence.ErrConflict):
		return "conflict"
	case errors.Is(err, persistence.ErrSnapshot):
		return "snapshot"
	case errors.Is(err, persistence.ErrStorage):
		return "storage"
	case errors.Is(err, recurrence.ErrInvalidDuration), errors.Is(err, recurrence.ErrInvalidFrequency):
		return "validation"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// logFailure logs err at Warn for expected refusals and at Error otherwise.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	kind := ErrorKind(err)
	switch kind {
	case "access_denied", "validation", "nothing_to_undo", "nothing_to_redo":
		logger.WarnContext(ctx, msg, "error", err, "error_kind", kind)
	default:
		logger.ErrorContext(ctx, msg, "error", err, "error_kind", kind)
	}
}
