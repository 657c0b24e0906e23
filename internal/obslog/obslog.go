// Package obslog provides the structured, conditionally-enabled logging used
// by the scanner, analyzers and facade: gated helper functions instead of a
// logger object threaded through every call, backed by log/slog.
package obslog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once    sync.Once
	enabled bool
	logger  *slog.Logger
)

func init() {
	once.Do(func() {
		enabled = os.Getenv("REPOMAP_DEBUG") != ""
		level := slog.LevelWarn
		if enabled {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
}

// Debugf logs a debug-level message when REPOMAP_DEBUG is set; it is a no-op
// cost otherwise beyond the slog level check.
func Debugf(component, msg string, args ...any) {
	logger.With("component", component).Debug(msg, args...)
}

// Warnf logs a recoverable problem: a parser panic, a skipped file, a cache
// anomaly. Always emitted regardless of REPOMAP_DEBUG.
func Warnf(component, msg string, args ...any) {
	logger.With("component", component).Warn(msg, args...)
}

// Errorf logs an unrecoverable problem surfaced to the caller.
func Errorf(component, msg string, args ...any) {
	logger.With("component", component).Error(msg, args...)
}
