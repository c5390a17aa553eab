package main

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logEnv = "DENO_LOADER_LOG"

// newLogger builds the CLI logger. --verbose selects the development
// config; otherwise a production config at warn level. A non-empty level
// overrides either.
func newLogger(verbose bool, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", logEnv, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
