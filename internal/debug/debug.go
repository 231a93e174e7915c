package debug

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// LevelEnv names the environment variable read when no level is given.
const LevelEnv = "RECONCILE_LOG_LEVEL"

// NewLogger builds a named logger writing to stderr. An empty level falls back to
// RECONCILE_LOG_LEVEL, then to info.
func NewLogger(name, level string) hclog.Logger {
	return NewLoggerTo(os.Stderr, name, level)
}

// NewLoggerTo is NewLogger with an explicit output.
func NewLoggerTo(w io.Writer, name, level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  ParseLevel(level),
		Output: w,
	})
}

// ParseLevel maps a level name to an hclog level, defaulting to info.
func ParseLevel(level string) hclog.Level {
	if level == "" {
		level = os.Getenv(LevelEnv)
	}
	lvl := hclog.LevelFromString(strings.TrimSpace(level))
	if lvl == hclog.NoLevel {
		return hclog.Info
	}
	return lvl
}

// OrNull returns logger, or a logger that discards everything when logger is nil.
func OrNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}

// Timing logs the start of an operation at debug level and returns a func that logs
// its duration.
func Timing(logger hclog.Logger, operation string, args ...interface{}) func() {
	if !logger.IsDebug() {
		return func() {}
	}

	start := time.Now()
	logger.Debug("starting "+operation, args...)

	return func() {
		done := append(append([]interface{}{}, args...), "took", time.Since(start))
		logger.Debug("completed "+operation, done...)
	}
}
