package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDeduper(t *testing.T) (*Deduper, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewDeduper(rdb, time.Hour, zap.NewNop()), srv
}

func TestAcquireOnceSuppressesDuplicates(t *testing.T) {
	d, _ := newTestDeduper(t)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"), "first delivery is processed")
	assert.False(t, d.AcquireOnce(ctx, "recurrence", "ev-1"), "redelivery is suppressed")

	// Different handler or event id is an independent key.
	assert.True(t, d.AcquireOnce(ctx, "reminder", "ev-1"))
	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-2"))
}

func TestReleaseAllowsRedeliveryToRetry(t *testing.T) {
	d, _ := newTestDeduper(t)
	ctx := context.Background()

	require.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"))
	d.Release(ctx, "recurrence", "ev-1")

	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"), "released key is acquirable again")
	assert.False(t, d.AcquireOnce(ctx, "recurrence", "ev-1"))
}

func TestAcquireOnceExpiresWithTTL(t *testing.T) {
	d, srv := newTestDeduper(t)
	ctx := context.Background()

	require.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"))
	srv.FastForward(2 * time.Hour)

	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"))
}

func TestAcquireOnceFailsOpenWhenRedisDown(t *testing.T) {
	d, srv := newTestDeduper(t)
	ctx := context.Background()

	srv.Close()

	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"))
	assert.True(t, d.AcquireOnce(ctx, "recurrence", "ev-1"), "unavailable redis never blocks processing")
	d.Release(ctx, "recurrence", "ev-1")
}

func TestDeduperNilSafety(t *testing.T) {
	ctx := context.Background()

	var d *Deduper
	assert.True(t, d.AcquireOnce(ctx, "reminder", "ev-1"))
	d.Release(ctx, "reminder", "ev-1")

	d = NewDeduper(nil, 0, nil)
	assert.True(t, d.AcquireOnce(ctx, "reminder", "ev-1"))

	// Bare deliveries carry no envelope id and are never suppressed.
	assert.True(t, d.AcquireOnce(ctx, "reminder", ""))
	d.Release(ctx, "reminder", "")
}
