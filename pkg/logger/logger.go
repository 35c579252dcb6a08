package logger

import (
	"context"

	"go.uber.org/zap"

	"taskflow/pkg/trace"
)

func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace returns a child logger carrying the trace_id from ctx, if any.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
