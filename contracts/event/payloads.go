package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ReminderEvent is the payload published once per (task_id, remind_at) pair
// when a reminder comes due.
type ReminderEvent struct {
	TaskID   string     `json:"task_id"`
	Title    string     `json:"title"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	RemindAt *time.Time `json:"remind_at"`
	UserID   string     `json:"user_id"`
}

func (e *ReminderEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("reminder event missing task_id")
	}
	if e.Title == "" {
		return errors.New("reminder event missing title")
	}
	if e.RemindAt == nil {
		return errors.New("reminder event missing remind_at")
	}
	if e.UserID == "" {
		return errors.New("reminder event missing user_id")
	}
	return nil
}

// TaskSnapshot is the full task state carried inside a completion event.
type TaskSnapshot struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	IsCompleted  bool       `json:"is_completed"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	RemindAt     *time.Time `json:"remind_at,omitempty"`
	Recurrence   string     `json:"recurrence"`
	ParentTaskID *string    `json:"parent_task_id,omitempty"`
	Tags         []string   `json:"tags"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// TaskCompletedEvent is emitted by the task API when a task is completed.
// It is consumed only by the recurrence service and discarded after processing.
type TaskCompletedEvent struct {
	EventType string       `json:"event_type"`
	TaskID    string       `json:"task_id"`
	TaskData  TaskSnapshot `json:"task_data"`
	UserID    string       `json:"user_id"`
	Timestamp time.Time    `json:"timestamp"`
}

// Normalize fills the defaults producers are allowed to omit: the event type,
// the task id (falls back to the snapshot id) and the timestamp.
func (e *TaskCompletedEvent) Normalize(now time.Time) {
	if e.EventType == "" {
		e.EventType = TypeTaskCompleted
	}
	if e.TaskID == "" {
		e.TaskID = e.TaskData.ID
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.TaskData.Recurrence == "" {
		e.TaskData.Recurrence = "none"
	}
}

func (e *TaskCompletedEvent) Validate() error {
	if e.TaskData.ID == "" {
		return errors.New("task completed event missing task_data.id")
	}
	if e.TaskData.Title == "" {
		return errors.New("task completed event missing task_data.title")
	}
	return nil
}

// DecodeReminder parses a delivered body (wrapped or bare) into a validated
// reminder payload. The returned envelope is nil for bare deliveries.
func DecodeReminder(raw []byte) (*ReminderEvent, *Envelope, error) {
	data, env, err := Extract(raw)
	if err != nil {
		return nil, nil, err
	}

	var payload ReminderEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, env, fmt.Errorf("failed to decode reminder payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, env, err
	}

	return &payload, env, nil
}

// DecodeTaskCompleted parses a delivered body (wrapped or bare) into a
// normalized, validated completion event.
func DecodeTaskCompleted(raw []byte, now time.Time) (*TaskCompletedEvent, *Envelope, error) {
	data, env, err := Extract(raw)
	if err != nil {
		return nil, nil, err
	}

	var payload TaskCompletedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, env, fmt.Errorf("failed to decode task completed payload: %w", err)
	}
	payload.Normalize(now)
	if err := payload.Validate(); err != nil {
		return nil, env, err
	}

	return &payload, env, nil
}
