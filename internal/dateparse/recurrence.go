package dateparse

import (
	"time"

	"taskflow/internal/model"
)

// NextDue projects a completed recurring task forward one interval. The
// interval is anchored on the current due date when present, otherwise on the
// completion time. A nil result means the next occurrence cannot be computed;
// callers must treat it as a hard stop, not a retry condition.
func NextDue(currentDue *time.Time, rec model.Recurrence, completedAt *time.Time) *time.Time {
	if !rec.IsRepeating() {
		return nil
	}

	base := currentDue
	if base == nil {
		base = completedAt
	}
	if base == nil {
		return nil
	}

	var next time.Time
	switch rec {
	case model.RecurrenceDaily:
		next = base.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		next = base.AddDate(0, 0, 7)
	case model.RecurrenceMonthly:
		next = addMonthClamped(*base)
	default:
		return nil
	}

	next = next.UTC()
	return &next
}

// addMonthClamped advances one calendar month, clamping to the last day of
// the target month instead of letting the overflow spill into the month
// after (Jan 31 -> Feb 28, not Mar 3).
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mi, ss := t.Clock()

	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, hh, mi, ss, t.Nanosecond(), t.Location())
}
