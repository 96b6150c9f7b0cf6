// Package logging builds the zap loggers used by the transports and the CLI.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger writing to stderr at the given level. Format "json"
// selects the production encoder; anything else gets the console encoder.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if strings.EqualFold(format, FormatJSON) {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level. Empty means warn.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// Must is New for callers that cannot continue without a logger; it falls
// back to a no-op logger instead of failing.
func Must(level, format string) *zap.Logger {
	logger, err := New(level, format)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
