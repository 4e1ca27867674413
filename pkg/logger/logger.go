// Package logger builds the process zap logger and carries request-scoped
// children through a context.
package logger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
)

// New returns a JSON logger for "json" and a colored console logger for
// anything else.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := consoleConfig()
	if cfg.Format == "json" {
		zc = jsonConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{cfg.OutputPath}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

func jsonConfig() zap.Config {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.MessageKey = "msg"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	return zc
}

func consoleConfig() zap.Config {
	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zc
}

type ctxKey struct{}

// WithContext stores l as the request logger.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// WithTrace tags l with the trace and span ids of the span in ctx, if any.
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
