package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevelEnv selects the log level: debug, info, warn, error.
const LogLevelEnv = "AIRDROP_LOG_LEVEL"

// NewLogger creates a structured JSON logger on stdout tagged with component.
func NewLogger(component string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, component, parseLogLevel(os.Getenv(LogLevelEnv)))
}

// NewLoggerTo creates a logger writing to w with an explicit level.
func NewLoggerTo(w io.Writer, component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLogLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
