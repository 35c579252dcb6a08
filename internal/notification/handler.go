// Package notification consumes reminder events and performs the notification
// side effect. Delivery is at-least-once, so every response acknowledges: a
// redelivered reminder only duplicates a log line.
package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskflow/contracts/event"
	"taskflow/pkg/logger"
	"taskflow/pkg/metrics"
	"taskflow/pkg/util"
)

const handlerName = "reminder"

type Response struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Handler struct {
	deduper *util.Deduper
	log     *zap.Logger
}

func NewHandler(deduper *util.Deduper, log *zap.Logger) *Handler {
	return &Handler{
		deduper: deduper,
		log:     log,
	}
}

// Process handles one delivered reminder body, wrapped or bare. The returned
// malformed flag tells transport bridges the body can never succeed.
//
// Malformed payloads are acknowledged, not failed: redelivery cannot fix bad
// data and would only loop a poison pill.
func (h *Handler) Process(ctx context.Context, body []byte) (Response, bool) {
	start := time.Now()
	log := logger.WithTrace(ctx, h.log)

	payload, env, err := event.DecodeReminder(body)
	if err != nil {
		log.Warn("Reminder event skipped, failed to parse",
			zap.Error(err),
		)
		metrics.RecordEventHandled(handlerName, "malformed", time.Since(start))
		return Response{Status: "SUCCESS", Note: "invalid event skipped"}, true
	}

	eventID := ""
	if env != nil {
		eventID = env.ID
	}

	if !h.deduper.AcquireOnce(ctx, handlerName, eventID) {
		metrics.RecordEventHandled(handlerName, "duplicate", time.Since(start))
		return Response{Status: "SUCCESS", Note: "duplicate delivery skipped"}, false
	}

	// The notification side effect. Today that is a structured log line; the
	// delivery channel (email, push) hangs off this point later.
	log.Info("Reminder notification",
		zap.String("task_id", payload.TaskID),
		zap.String("task_title", payload.Title),
		zap.String("user_id", payload.UserID),
		zap.Timep("due_at", payload.DueAt),
		zap.Timep("remind_at", payload.RemindAt),
		zap.String("event_id", eventID),
	)

	metrics.RecordEventHandled(handlerName, "success", time.Since(start))
	return Response{Status: "SUCCESS"}, false
}

// HandleMQ adapts Process for queue deliveries. Malformed bodies return a
// terminal error so the bridge routes them to the DLQ instead of requeueing.
func (h *Handler) HandleMQ(ctx context.Context, body []byte) error {
	resp, malformed := h.Process(ctx, body)
	if malformed {
		return fmt.Errorf("malformed reminder payload: %s", resp.Note)
	}
	return nil
}
