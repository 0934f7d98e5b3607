package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide slog logger writing to stdout and returns
// its handler so it can later be combined with the database handler.
func Setup(level, encoding string) slog.Handler {
	handler := NewHandler(os.Stdout, level, encoding)
	slog.SetDefault(slog.New(handler))
	return handler
}

// NewHandler builds a JSON or text handler at the named level.
func NewHandler(w io.Writer, level, encoding string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(encoding, "console") || strings.EqualFold(encoding, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
