package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
)

func TestNextDue(t *testing.T) {
	due := date(2025, 1, 15)
	completed := date(2025, 2, 1)

	tests := []struct {
		name      string
		due       *time.Time
		rec       model.Recurrence
		completed *time.Time
		want      *time.Time
	}{
		{"daily from due", ptr(date(2025, 3, 1)), model.RecurrenceDaily, &completed, ptr(date(2025, 3, 2))},
		{"weekly from due", &due, model.RecurrenceWeekly, &completed, ptr(date(2025, 1, 22))},
		{"monthly from due", &due, model.RecurrenceMonthly, &completed, ptr(date(2025, 2, 15))},
		// One calendar month forward, clamped to the shorter month's last day.
		{"monthly clamps into february", ptr(date(2025, 1, 31)), model.RecurrenceMonthly, &completed, ptr(date(2025, 2, 28))},
		{"monthly clamps into leap february", ptr(date(2024, 1, 31)), model.RecurrenceMonthly, &completed, ptr(date(2024, 2, 29))},
		{"monthly clamps into april", ptr(date(2025, 3, 31)), model.RecurrenceMonthly, &completed, ptr(date(2025, 4, 30))},
		{"monthly across year end", ptr(date(2025, 12, 31)), model.RecurrenceMonthly, &completed, ptr(date(2026, 1, 31))},
		{"daily anchors on completion when no due date", nil, model.RecurrenceDaily, &completed, ptr(date(2025, 2, 2))},
		{"weekly anchors on completion when no due date", nil, model.RecurrenceWeekly, &completed, ptr(date(2025, 2, 8))},
		{"none recurrence", &due, model.RecurrenceNone, &completed, nil},
		{"nothing to anchor on", nil, model.RecurrenceWeekly, nil, nil},
		{"none and nothing to anchor on", nil, model.RecurrenceNone, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(tt.due, tt.rec, tt.completed)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNextDueIgnoresCompletionWhenDuePresent(t *testing.T) {
	due := date(2025, 1, 15)
	completed := date(2025, 6, 30)
	got := NextDue(&due, model.RecurrenceWeekly, &completed)
	require.NotNil(t, got)
	assert.Equal(t, date(2025, 1, 22), *got)
}

func TestParseRecurrence(t *testing.T) {
	assert.Equal(t, model.RecurrenceDaily, model.ParseRecurrence("daily"))
	assert.Equal(t, model.RecurrenceWeekly, model.ParseRecurrence(" Weekly "))
	assert.Equal(t, model.RecurrenceMonthly, model.ParseRecurrence("MONTHLY"))
	assert.Equal(t, model.RecurrenceNone, model.ParseRecurrence("none"))
	assert.Equal(t, model.RecurrenceNone, model.ParseRecurrence(""))
	assert.Equal(t, model.RecurrenceNone, model.ParseRecurrence("fortnightly"))
	assert.False(t, model.RecurrenceNone.IsRepeating())
	assert.True(t, model.RecurrenceDaily.IsRepeating())
}

func ptr(t time.Time) *time.Time {
	return &t
}
