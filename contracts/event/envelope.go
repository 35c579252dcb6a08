package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SpecVersion is the envelope contract version stamped on every event.
	SpecVersion = "1.0"

	TypeReminderTriggered = "reminder.triggered"
	TypeTaskCompleted     = "task.completed"
)

// Envelope is the versioned metadata wrapper around an event payload.
// The id doubles as the idempotency and correlation key for consumers.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	ID              string          `json:"id"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// New wraps a payload in a producer-stamped envelope.
func New(eventType, source string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return Envelope{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          source,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}, nil
}

// Extract normalizes the two wire shapes a delivery may arrive in: a full
// envelope with the payload nested under "data", or the bare payload itself.
// It returns the canonical payload bytes, plus the envelope metadata when the
// body was wrapped (nil for bare payloads).
//
// A body counts as wrapped only when its "data" member is a JSON object;
// anything else is treated as a bare payload.
func Extract(raw []byte) (json.RawMessage, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("body is not a JSON object: %w", err)
	}

	if isJSONObject(env.Data) {
		return env.Data, &env, nil
	}

	return raw, nil, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
