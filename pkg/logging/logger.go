// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Context field names shared across packages.
const (
	FieldComponent = "component"
	FieldSession   = "session"
	FieldEpoch     = "epoch"
	FieldStrategy  = "strategy"
	FieldOffset    = "offset"
	FieldPageSize  = "page_size"
	FieldEntryID   = "entry_id"
	FieldEndpoint  = "endpoint"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05.000"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// WithSession tags a logger with a browsing session.
func WithSession(logger zerolog.Logger, id string, epoch uint64, strategy string) zerolog.Logger {
	return logger.With().
		Str(FieldSession, id).
		Uint64(FieldEpoch, epoch).
		Str(FieldStrategy, strategy).
		Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, negative hits, conditional requests)
//   - Page offsets and batch sizes
//   - Hydration decisions (which ids, how many pending)
//
// Info: Normal operation events
//   - Strategy selection and completion
//   - Session resets
//   - Completed pages
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts (empty pages, network errors, 5xx/429)
//   - Strategy fallbacks to incremental paging
//   - Dropped stale responses
//   - Cache and breaker store errors
//
// Error: Error conditions requiring attention
//   - Exhausted retries
//   - Circuit breaker opening
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package
//   - session, epoch, strategy: Browsing session identity
//   - offset, page_size: Incremental page position
//   - entry_id: Catalog entry id
//   - endpoint: API path
//   - attempt, delay: Retry progress
//   - error_class: Error classification (client, server, rate_limit, network)
