package main

import (
	"io"
	"log/slog"

	"github.com/jpalmerr/statusreporter/config"
)

// newLogger creates a JSON logger for CLI use at the configured level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}
