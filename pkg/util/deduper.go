package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper suppresses duplicate deliveries by envelope id. At-least-once
// transports may hand the same event to a consumer any number of times.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire a dedup lock for handler + event id.
// Returns true if this is the FIRST time processing, false on a duplicate.
// When redis is unavailable it fails open: processing is allowed and the
// data-level idempotence (reminder_sent flag, parent_task_id lineage) is the
// backstop.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, eventID string) bool {
	if d == nil || d.rdb == nil || eventID == "" {
		return true
	}

	key := dedupKey(handler, eventID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release drops a held dedup key so a redelivery of the same event can do the
// work again. Callers use it when processing fails after AcquireOnce without
// completing the side effect; the key must only outlive completed work.
func (d *Deduper) Release(ctx context.Context, handler, eventID string) {
	if d == nil || d.rdb == nil || eventID == "" {
		return
	}

	key := dedupKey(handler, eventID)

	if err := d.rdb.Del(ctx, key).Err(); err != nil && d.logger != nil {
		// The key expires via TTL eventually; until then redeliveries of
		// this event are suppressed.
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func dedupKey(handler, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, eventID)
}
