// Package logging configures the zerolog logger shared by the acquisition and
// reconciliation commands.
//
// Field names used across packages:
//
//   - component: the emitting package
//   - season, round: event coordinates
//   - url, endpoint: request target
//   - attempt, backoff, error_class: executor retries
//   - offset, limit, total: pagination state
//   - file, kind, reason, rows: reconciliation manifest
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every request, page and file.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs per-event and per-season progress.
	LevelInfo LogLevel = "info"

	// LevelWarn logs retries and skipped files.
	LevelWarn LogLevel = "warn"

	// LevelError logs fatal conditions only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty selects the console writer instead of JSON lines.
	Pretty bool

	// Output defaults to os.Stderr so that report output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. An unknown
// level selects info.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a textual level to a zerolog.Level. The empty string
// is info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithEvent tags logger with the season and round of an event.
func WithEvent(logger zerolog.Logger, season, round int) zerolog.Logger {
	return logger.With().Int("season", season).Int("round", round).Logger()
}
