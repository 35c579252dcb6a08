package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
)

// IsRetryableError determines if an error is transient.
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	errStr := err.Error()

	// JSON decode errors: malformed data, redelivery cannot fix it
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}
	if strings.Contains(errStr, "json:") {
		return false, "json_decode_error"
	}

	// Database errors
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "row_not_found"
	}
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		// Unique violation means the work already happened.
		return false, "duplicate_key"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return true, "db_connection_error"
	}

	// Network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// Backend task API
	if strings.Contains(errStr, "backend returned 5xx") {
		return true, "backend_unavailable"
	}
	if strings.Contains(errStr, "backend returned error") {
		return false, "backend_rejected"
	}
	if strings.Contains(errStr, "circuit breaker is open") {
		return true, "backend_unavailable"
	}

	// Unknown errors: conservative, do not retry
	return false, "unknown_error"
}
