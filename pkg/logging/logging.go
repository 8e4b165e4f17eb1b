// Package logging provides the structured logger shared by the bridge packages.
// It wraps log/slog so that every component logs JSON with the same level
// handling, and so tests can swap the destination.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Log levels accepted by ParseLevel.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stderr, LevelInfo)
)

// New creates a JSON logger writing to w at the given level.
// Unknown levels fall back to INFO.
func New(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel converts a level name to slog.Level. Defaults to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. Passing nil restores the
// stderr logger at INFO.
func SetDefault(l *slog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if l == nil {
		l = New(os.Stderr, LevelInfo)
	}
	defaultLogger = l
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return Default().With(slog.String("component", name))
}
