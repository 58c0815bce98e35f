// Package app wires up the process-wide concerns lfdiff needs outside the
// diffing logic itself: currently just the logger.
package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors the small set of levels lfdiff's CLI exposes, independent
// of zap's own (larger) level type, so callers outside this package never
// need to import zapcore directly.
type LogLevel int

const (
	// LogLevelDebug is for per-iteration chunk/child-process detail.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for the final comparison summary.
	LogLevelInfo
	// LogLevelWarn is for recoverable anomalies (e.g. an empty input side).
	LogLevelWarn
	// LogLevelError is for the single line logged immediately before a
	// fatal abort.
	LogLevelError
)

// String returns the level's name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds the process logger. lfdiff is a terminal-facing batch
// tool rather than a log-shipping service, so it uses zap's console
// encoding instead of the JSON encoding a production config defaults to;
// verbose bumps the level to Debug, matching codenerd's
// "-v switches AtomicLevel to DebugLevel" pattern.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	level := LogLevelInfo
	if verbose {
		level = LogLevelDebug
	}
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())

	return cfg.Build()
}
