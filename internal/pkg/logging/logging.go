package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps "debug", "warn" and "error" to their slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New builds a logger writing to w. format is "json" or "text" (default
// "json"). attrs are attached to every record, e.g. "service", "placemark-api".
// Debug logs carry their source location.
func New(w io.Writer, level, format string, attrs ...any) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(attrs...)
}

// Setup installs a stdout logger as the slog default and returns it.
func Setup(level, format string, attrs ...any) *slog.Logger {
	logger := New(os.Stdout, level, format, attrs...)
	slog.SetDefault(logger)
	return logger
}
