// Package httpserver carries the gin middleware and probe routes shared by the
// consumer services.
package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskflow/pkg/metrics"
	"taskflow/pkg/mq"
	"taskflow/pkg/trace"
)

// Trace propagates the inbound correlation id (or mints one) through the
// request context and echoes it on the response.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}

		ctx := trace.WithContext(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName(), traceID)

		c.Next()
	}
}

// RequestLogger logs every request with latency and status.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
		metrics.RecordHTTPRequest(c.Request.Method, path, statusLabel(c.Writer.Status()), latency)
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

// RegisterProbes mounts health, readiness and metrics routes. db and consumer
// may be nil when a service does not use them.
func RegisterProbes(r *gin.Engine, db *pgxpool.Pool, consumer *mq.Consumer) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c, 1*time.Second)
			defer cancel()

			if err := db.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
