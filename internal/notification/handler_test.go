package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskflow/pkg/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHandler() *Handler {
	// nil deduper means every delivery is treated as first
	return NewHandler(nil, zap.NewNop())
}

const bareReminder = `{"task_id":"t1","title":"water plants","remind_at":"2025-03-12T09:00:00Z","user_id":"u1"}`

func TestProcessBarePayload(t *testing.T) {
	resp, malformed := newTestHandler().Process(context.Background(), []byte(bareReminder))

	assert.False(t, malformed)
	assert.Equal(t, "SUCCESS", resp.Status)
	assert.Empty(t, resp.Note)
}

func TestProcessWrappedPayload(t *testing.T) {
	wrapped := `{"specversion":"1.0","type":"reminder.triggered","source":"scheduler","id":"ev-1","time":"2025-03-12T09:00:00Z","data":` + bareReminder + `}`

	resp, malformed := newTestHandler().Process(context.Background(), []byte(wrapped))

	assert.False(t, malformed)
	assert.Equal(t, "SUCCESS", resp.Status)
}

func TestProcessMalformedPayloadIsAcknowledged(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `garbage`},
		{"missing required fields", `{"title":"no ids here"}`},
		{"wrapped with bad inner payload", `{"specversion":"1.0","id":"ev-2","data":{"title":"no ids"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, malformed := newTestHandler().Process(context.Background(), []byte(tt.body))

			assert.True(t, malformed)
			assert.Equal(t, "SUCCESS", resp.Status)
			assert.Equal(t, "invalid event skipped", resp.Note)
		})
	}
}

func TestProcessSuppressesDuplicateDelivery(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := NewHandler(util.NewDeduper(rdb, time.Hour, zap.NewNop()), zap.NewNop())

	wrapped := []byte(`{"specversion":"1.0","type":"reminder.triggered","source":"scheduler","id":"ev-9","time":"2025-03-12T09:00:00Z","data":` + bareReminder + `}`)

	resp, malformed := h.Process(context.Background(), wrapped)
	require.False(t, malformed)
	require.Equal(t, "SUCCESS", resp.Status)
	assert.Empty(t, resp.Note)

	resp, malformed = h.Process(context.Background(), wrapped)
	assert.False(t, malformed)
	assert.Equal(t, "SUCCESS", resp.Status)
	assert.Equal(t, "duplicate delivery skipped", resp.Note)
}

func TestHandleMQMalformedIsTerminal(t *testing.T) {
	h := newTestHandler()

	assert.Error(t, h.HandleMQ(context.Background(), []byte(`garbage`)))
	assert.NoError(t, h.HandleMQ(context.Background(), []byte(bareReminder)))
}

func TestReminderEndpointAlwaysAnswers200(t *testing.T) {
	router := NewRouter(newTestHandler(), zap.NewNop(), nil)

	for name, body := range map[string]string{
		"valid":     bareReminder,
		"malformed": `garbage`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/reminders/handle", strings.NewReader(body))
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"SUCCESS"`)
		})
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(newTestHandler(), zap.NewNop(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
