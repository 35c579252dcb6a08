package model

import (
	"strings"
	"time"
)

// Recurrence is the cadence at which a completed task spawns a successor.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence normalizes a wire value; unknown values mean no recurrence.
func ParseRecurrence(s string) Recurrence {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case RecurrenceDaily:
		return RecurrenceDaily
	case RecurrenceWeekly:
		return RecurrenceWeekly
	case RecurrenceMonthly:
		return RecurrenceMonthly
	default:
		return RecurrenceNone
	}
}

func (r Recurrence) IsRepeating() bool {
	return r == RecurrenceDaily || r == RecurrenceWeekly || r == RecurrenceMonthly
}

// Task mirrors the reminder-relevant columns of the externally owned task row.
type Task struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Priority     string
	DueDate      *time.Time
	RemindAt     *time.Time
	ReminderSent bool
	Recurrence   Recurrence
	IsCompleted  bool
	ParentTaskID *string
	Tags         []string
}
