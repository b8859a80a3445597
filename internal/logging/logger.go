// Package logging builds the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format at Info level, everything else gets
// human-readable text at Debug level. Every record carries the service
// name and version so aggregated logs can be filtered per deployment.
func NewLogger(env, version string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("service", "hubspot-integration"),
		slog.String("version", version),
	)
}
