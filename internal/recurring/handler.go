// Package recurring consumes task-completion events and generates the next
// occurrence of recurring tasks through the task API.
package recurring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskflow/contracts/event"
	"taskflow/internal/dateparse"
	"taskflow/internal/model"
	"taskflow/pkg/logger"
	"taskflow/pkg/metrics"
	"taskflow/pkg/mq"
	"taskflow/pkg/util"
)

const handlerName = "recurrence"

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusIgnored Status = "IGNORED"
	StatusSkipped Status = "SKIPPED"
	StatusFailed  Status = "FAILED"
	StatusRetry   Status = "RETRY"
)

type Response struct {
	Status    Status `json:"status"`
	Note      string `json:"note,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	NewTaskID string `json:"new_task_id,omitempty"`
}

type Handler struct {
	backend BackendClient
	deduper *util.Deduper
	log     *zap.Logger
	now     func() time.Time
}

func NewHandler(backend BackendClient, deduper *util.Deduper, log *zap.Logger) *Handler {
	return &Handler{
		backend: backend,
		deduper: deduper,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Process handles one delivered task event, wrapped or bare, with the bearer
// credential forwarded from the delivery (empty when none was attached).
// Every exit is explicit:
//
//	malformed           -> SUCCESS ack (poison pills are dropped, not retried)
//	wrong event type    -> IGNORED
//	not recurring       -> IGNORED
//	no next due date    -> FAILED (deterministic, retry cannot change it)
//	no credential       -> SKIPPED
//	backend transient   -> RETRY (delivery layer redelivers)
//	backend terminal    -> FAILED
func (h *Handler) Process(ctx context.Context, body []byte, token string) Response {
	start := time.Now()
	log := logger.WithTrace(ctx, h.log)

	evt, env, err := event.DecodeTaskCompleted(body, h.now())
	if err != nil {
		log.Warn("Task event skipped, failed to parse",
			zap.Error(err),
		)
		metrics.RecordEventHandled(handlerName, "malformed", time.Since(start))
		return Response{Status: StatusSuccess, Note: "invalid event skipped"}
	}

	if evt.EventType != event.TypeTaskCompleted {
		log.Debug("Ignoring non-completion event",
			zap.String("event_type", evt.EventType),
		)
		metrics.RecordEventHandled(handlerName, "ignored", time.Since(start))
		return Response{Status: StatusIgnored, Reason: "not a completion event"}
	}

	rec := model.ParseRecurrence(evt.TaskData.Recurrence)
	if !rec.IsRepeating() {
		log.Debug("Skipping non-recurring task",
			zap.String("task_id", evt.TaskID),
			zap.String("recurrence", evt.TaskData.Recurrence),
		)
		metrics.RecordEventHandled(handlerName, "ignored", time.Since(start))
		return Response{Status: StatusIgnored, Reason: "task is not recurring"}
	}

	completedAt := h.now()
	nextDue := dateparse.NextDue(evt.TaskData.DueDate, rec, &completedAt)
	if nextDue == nil {
		log.Warn("Could not calculate next due date",
			zap.String("task_id", evt.TaskID),
			zap.String("recurrence", string(rec)),
		)
		metrics.RecordEventHandled(handlerName, "failed", time.Since(start))
		return Response{Status: StatusFailed, Reason: "could not calculate next due date"}
	}

	if token == "" {
		// Known architectural gap: without service-to-service auth this
		// occurrence is lost unless a credential-bearing redelivery arrives.
		log.Warn("No authentication credential attached, skipping occurrence",
			zap.String("task_id", evt.TaskID),
			zap.String("recurrence", string(rec)),
		)
		metrics.RecurrenceSkippedNoAuth.Inc()
		metrics.RecordEventHandled(handlerName, "skipped", time.Since(start))
		return Response{Status: StatusSkipped, Reason: "no authentication credential attached"}
	}

	eventID := ""
	if env != nil {
		eventID = env.ID
	}
	if !h.deduper.AcquireOnce(ctx, handlerName, eventID) {
		metrics.RecordEventHandled(handlerName, "duplicate", time.Since(start))
		return Response{Status: StatusIgnored, Reason: "duplicate delivery"}
	}

	log.Info("Processing task completion",
		zap.String("task_id", evt.TaskID),
		zap.String("task_title", evt.TaskData.Title),
		zap.String("user_id", evt.UserID),
		zap.String("recurrence", string(rec)),
		zap.Time("next_due", *nextDue),
		zap.String("token_subject", TokenSubject(token)),
	)

	req := CreateTaskRequest{
		Title:        evt.TaskData.Title,
		Description:  evt.TaskData.Description,
		Priority:     evt.TaskData.Priority,
		Tags:         evt.TaskData.Tags,
		DueDate:      nextDue,
		Recurrence:   string(rec),
		ParentTaskID: evt.TaskID,
		UserID:       evt.UserID,
	}

	created, err := h.backend.CreateTask(ctx, req, token)
	if err != nil {
		retryable, errType := util.IsRetryableError(err)
		log.Error("Failed to create recurring task",
			zap.String("task_id", evt.TaskID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if retryable {
			// The occurrence was not created, so the dedup key must not
			// survive; the redelivery has to reach the backend again.
			h.deduper.Release(ctx, handlerName, eventID)
			metrics.RecordEventHandled(handlerName, "retry", time.Since(start))
			return Response{Status: StatusRetry, Error: err.Error()}
		}
		metrics.RecordEventHandled(handlerName, "failed", time.Since(start))
		return Response{Status: StatusFailed, Error: err.Error()}
	}

	log.Info("Recurring task created",
		zap.String("original_task_id", evt.TaskID),
		zap.String("new_task_id", created.ID),
		zap.Time("next_due", *nextDue),
		zap.String("user_id", evt.UserID),
	)

	metrics.RecurrenceCreated.Inc()
	metrics.RecordEventHandled(handlerName, "success", time.Since(start))
	return Response{Status: StatusSuccess, NewTaskID: created.ID}
}

// HandleMQ adapts Process for queue deliveries. Only RETRY responses requeue;
// everything else acknowledges so the queue never loops on a poison pill.
func (h *Handler) HandleMQ(ctx context.Context, body []byte, token string) error {
	resp := h.Process(ctx, body, token)
	if resp.Status == StatusRetry {
		return fmt.Errorf("%w: %s", mq.ErrRequeue, resp.Error)
	}
	return nil
}
