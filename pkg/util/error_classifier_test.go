package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte(`{`), &struct{}{})

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", jsonErr, false, "json_decode_error"},
		{"row not found", pgx.ErrNoRows, false, "row_not_found"},
		{"wrapped row not found", fmt.Errorf("load task: %w", pgx.ErrNoRows), false, "row_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "tasks_pkey"`), false, "duplicate_key"},
		{"connection refused", errors.New("dial tcp: connection refused"), true, "db_connection_error"},
		{"deadline exceeded", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"backend 5xx", errors.New("backend returned 5xx: 503"), true, "backend_unavailable"},
		{"backend rejection", errors.New("backend returned error: 422"), false, "backend_rejected"},
		{"open breaker", errors.New("circuit breaker is open"), true, "backend_unavailable"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.errType, errType)
		})
	}
}
