package sim

import (
	"context"
	"log/slog"
)

// LevelTrace sits between Info and Warn for per-cycle detail that is
// useful when replaying a run but too noisy for Info (spec.md §2
// ambient stack, grounded on core/util.go's LevelTrace/Trace pair).
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs msg at LevelTrace against the default logger. Units call
// this directly rather than holding their own *slog.Logger, matching
// the teacher's package-level slog.Warn/slog.Info calls: a driver
// configures the default handler once (see cmd/), every unit just logs.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
