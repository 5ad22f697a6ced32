package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns the process logger: JSON to stdout in deployed environments,
// human-readable text in dev.
func New(environment string) *slog.Logger {
	return NewWithWriter(os.Stdout, environment)
}

func NewWithWriter(w io.Writer, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if environment == "" || environment == "dev" {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
