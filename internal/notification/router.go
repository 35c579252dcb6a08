package notification

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskflow/internal/httpserver"
	"taskflow/pkg/mq"
)

// NewRouter builds the HTTP surface of the notification service. The reminder
// endpoint always answers 200; ack semantics live in the response body so the
// delivery layer never redelivers on our account.
func NewRouter(h *Handler, log *zap.Logger, consumer *mq.Consumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpserver.Trace())
	r.Use(httpserver.RequestLogger(log))

	httpserver.RegisterProbes(r, nil, consumer)

	r.POST("/api/reminders/handle", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(200, Response{Status: "FAILED", Error: err.Error()})
			return
		}

		resp, _ := h.Process(c.Request.Context(), body)
		c.JSON(200, resp)
	})

	return r
}
