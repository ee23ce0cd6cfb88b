// Package obslog sets up structured logging for the core, grounded on the
// teacher's internal/logging package but trimmed to what a library-shaped
// core needs: a JSON handler on stderr. File rotation and log viewing belong
// to the external CLI front-end and are out of scope here.
package obslog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger writing structured JSON to stderr at the given
// level ("debug", "info", "warn", "error"; unrecognized values default to
// info).
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for use in tests that
// don't want stderr noise.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
