package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := ReminderEvent{TaskID: "t1", Title: "water plants", UserID: "u1"}

	env, err := New(TypeReminderTriggered, "scheduler", payload)
	require.NoError(t, err)

	assert.Equal(t, SpecVersion, env.SpecVersion)
	assert.Equal(t, TypeReminderTriggered, env.Type)
	assert.Equal(t, "scheduler", env.Source)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Time.IsZero())
	assert.Equal(t, time.UTC, env.Time.Location())

	var round ReminderEvent
	require.NoError(t, json.Unmarshal(env.Data, &round))
	assert.Equal(t, payload.TaskID, round.TaskID)
}

func TestEnvelopeIDsAreUnique(t *testing.T) {
	a, err := New(TypeReminderTriggered, "scheduler", map[string]string{})
	require.NoError(t, err)
	b, err := New(TypeReminderTriggered, "scheduler", map[string]string{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestExtractWrappedAndBareAgree(t *testing.T) {
	bare := []byte(`{"task_id":"t1","title":"water plants","remind_at":"2025-03-01T09:00:00Z","user_id":"u1"}`)
	wrapped := []byte(`{"specversion":"1.0","type":"reminder.triggered","source":"scheduler","id":"ev-1","time":"2025-03-01T09:00:00Z","data":{"task_id":"t1","title":"water plants","remind_at":"2025-03-01T09:00:00Z","user_id":"u1"}}`)

	fromBare, bareEnv, err := DecodeReminder(bare)
	require.NoError(t, err)
	assert.Nil(t, bareEnv)

	fromWrapped, wrappedEnv, err := DecodeReminder(wrapped)
	require.NoError(t, err)
	require.NotNil(t, wrappedEnv)
	assert.Equal(t, "ev-1", wrappedEnv.ID)

	assert.Equal(t, *fromBare, *fromWrapped)
}

func TestExtractNonObjectDataMeansBare(t *testing.T) {
	// A "data" member that is not a JSON object does not make a body wrapped.
	raw := []byte(`{"data":"just a string","task_id":"t1"}`)
	payload, env, err := Extract(raw)
	require.NoError(t, err)
	assert.Nil(t, env)
	assert.JSONEq(t, string(raw), string(payload))
}

func TestDecodeReminderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `this is not json`},
		{"missing task_id", `{"title":"x","remind_at":"2025-03-01T09:00:00Z","user_id":"u1"}`},
		{"missing title", `{"task_id":"t1","remind_at":"2025-03-01T09:00:00Z","user_id":"u1"}`},
		{"missing remind_at", `{"task_id":"t1","title":"x","user_id":"u1"}`},
		{"missing user_id", `{"task_id":"t1","title":"x","remind_at":"2025-03-01T09:00:00Z"}`},
		{"wrong field type", `{"task_id":42,"title":"x","remind_at":"2025-03-01T09:00:00Z","user_id":"u1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeReminder([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeTaskCompletedDualShape(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	inner := `{"event_type":"task.completed","task_id":"t1","task_data":{"id":"t1","title":"report","priority":"high","recurrence":"weekly","tags":["work"]},"user_id":"u1","timestamp":"2025-03-12T09:00:00Z"}`

	fromBare, env, err := DecodeTaskCompleted([]byte(inner), now)
	require.NoError(t, err)
	assert.Nil(t, env)

	wrapped := `{"specversion":"1.0","type":"task.completed","source":"backend","id":"ev-2","time":"2025-03-12T09:00:00Z","data":` + inner + `}`
	fromWrapped, wrappedEnv, err := DecodeTaskCompleted([]byte(wrapped), now)
	require.NoError(t, err)
	require.NotNil(t, wrappedEnv)
	assert.Equal(t, "ev-2", wrappedEnv.ID)

	assert.Equal(t, *fromBare, *fromWrapped)
	assert.Equal(t, "weekly", fromBare.TaskData.Recurrence)
	assert.Equal(t, []string{"work"}, fromBare.TaskData.Tags)
}

func TestDecodeTaskCompletedNormalize(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	body := `{"task_data":{"id":"t9","title":"stand-up"},"user_id":"u1"}`

	evt, _, err := DecodeTaskCompleted([]byte(body), now)
	require.NoError(t, err)

	assert.Equal(t, TypeTaskCompleted, evt.EventType)
	assert.Equal(t, "t9", evt.TaskID, "task_id falls back to the snapshot id")
	assert.Equal(t, now, evt.Timestamp)
	assert.Equal(t, "none", evt.TaskData.Recurrence)
}

func TestDecodeTaskCompletedValidation(t *testing.T) {
	now := time.Now().UTC()

	_, _, err := DecodeTaskCompleted([]byte(`{"task_data":{"title":"no id"}}`), now)
	assert.Error(t, err)

	_, _, err = DecodeTaskCompleted([]byte(`{"task_data":{"id":"t1"}}`), now)
	assert.Error(t, err)

	_, _, err = DecodeTaskCompleted([]byte(`[1,2,3]`), now)
	assert.Error(t, err)
}
