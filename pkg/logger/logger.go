// Package logger builds the zap loggers shared by the server and the bot.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// NewLogger creates a zap logger. format is "json" for production output,
// anything else gives colored console output.
func NewLogger(level, format string) (*zap.Logger, error) {
	zapLevel, ok := levels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %q", level)
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Must is NewLogger for main packages: it falls back to a production logger
// when the configured level or format cannot be used.
func Must(level, format string) *zap.Logger {
	l, err := NewLogger(level, format)
	if err == nil {
		return l
	}
	l = zap.Must(zap.NewProduction())
	l.Warn("falling back to production logger", zap.Error(err))
	return l
}
