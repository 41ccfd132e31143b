package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

var defaultLogger *zap.Logger

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var level zapcore.Level
		if err := level.Set(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}
	var err error
	if defaultLogger, err = cfg.Build(); err != nil {
		panic(err)
	}
}

// Logger returns the logger attached to ctx, or the default logger
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return defaultLogger
}

// With returns a copy of ctx whose logger carries the given key/value pairs
func With(ctx context.Context, args ...interface{}) context.Context {
	return context.WithValue(ctx, loggerKey{}, Logger(ctx).Sugar().With(args...).Desugar())
}

// Fatal logs the message at fatal level on the default logger and exits
func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.Fatal(msg, fields...)
}
