package core

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init initializes zap's global logger.
// After calling this, we use zap.L() directly.
func Init(pretty bool, verbose bool) error {
	var config zap.Config

	if pretty {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	// The delegate owns stdout; all wrapper logging goes to stderr.
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// LogDeferredError logs an error returned by a deferred cleanup call, so that
// `defer LogDeferredError(f.Close)` never silently drops a failure.
func LogDeferredError(fn func() error) {
	if err := fn(); err != nil {
		zap.L().Error("Deferred call failed", zap.Error(err))
	}
}

// LogStepResult logs one orchestrated child-process step using zap's global logger.
func LogStepResult(kind string, name string, status int) {
	fields := []zap.Field{
		zap.String(kind, name),
		zap.Int("status", status),
	}

	if status != 0 {
		zap.L().Warn("Step failed", fields...)
		return
	}

	zap.L().Debug("Step completed", fields...)
}
