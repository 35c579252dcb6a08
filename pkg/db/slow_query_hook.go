package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskflow/pkg/metrics"
)

type queryCtxKey int

const (
	queryStartKey queryCtxKey = iota
	querySQLKey
)

// SlowQueryTracer logs and counts queries slower than a threshold.
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx = context.WithValue(ctx, queryStartKey, time.Now())
	ctx = context.WithValue(ctx, querySQLKey, data.SQL)
	return ctx
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey).(time.Time)
	if !ok {
		return
	}

	duration := time.Since(start)
	if duration <= t.slowThreshold {
		return
	}

	// TraceQueryEndData carries no SQL in pgx v5, so it rides the context.
	sql, _ := ctx.Value(querySQLKey).(string)
	if sql == "" {
		sql = "unknown"
	}
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)

	metrics.DBSlowQueries.Inc()
}
