package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

// GenerateTraceID returns a fresh random correlation id.
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext extracts the correlation id from ctx, or "" if none is set.
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext attaches a correlation id to ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// HeaderName is the HTTP header used to propagate correlation ids.
func HeaderName() string {
	return "X-Trace-ID"
}
