// Package telemetry provides application-level observability for the gem
// registry: slog configuration and the Prometheus metrics exposed on the
// side-channel listener started by cmd/server.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures the global slog default logger from the logging
// section of the configuration.
//
// format: "json" selects the JSONHandler (production); anything else the
// TextHandler (local development).
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to
// "info".
//
// The logger is installed as the default so slog.Info/Warn/Error calls
// elsewhere pick it up without carrying a *slog.Logger through every call.
func SetupLogger(format, level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // include file:line only when debugging
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
