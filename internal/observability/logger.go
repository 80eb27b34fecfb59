// Package observability holds the process-wide loggers.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	// ProfileStructured emits JSON lines, suitable for the server.
	ProfileStructured = "structured"

	// ProfileConsole emits human-readable lines, suitable for the CLI.
	ProfileConsole = "console"
)

// CLILogger is the logger used by CLI commands. It writes to stderr so
// stdout stays reserved for results. It is a no-op logger until
// InitCLILogger runs.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for a console session. verbose lowers
// the level to debug.
func InitCLILogger(name string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	CLILogger = newLogger(ProfileConsole, level).Named(name)
}

// NewLogger builds a logger for the given level name ("debug", "info",
// "warn", "error") and profile.
func NewLogger(levelName, profile string) (*zap.Logger, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(profile) {
	case "", ProfileStructured, ProfileConsole:
	default:
		return nil, fmt.Errorf("unknown logging profile %q", profile)
	}
	return newLogger(strings.ToLower(profile), level), nil
}

// ParseLevel converts a level name to a zapcore.Level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func newLogger(profile string, level zapcore.Level) *zap.Logger {
	var enc zapcore.Encoder
	if profile == ProfileConsole {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	return zap.New(core)
}
