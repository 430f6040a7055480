// Package logging builds the structured logger every trustcore binary uses,
// following cmd/dex/logger.go's level/format slog.Handler selection.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var formats = []string{"json", "text"}

// New returns a slog.Logger writing to stderr in the requested format
// ("json" or "text", default "text") at the requested level ("debug",
// "info", "warn", "error", default "info").
func New(level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		return nil, fmt.Errorf("log format is not one of the supported values (%s): %s", strings.Join(formats, ", "), format)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log level is not one of the supported values (debug, info, warn, error): %s", level)
	}
}
