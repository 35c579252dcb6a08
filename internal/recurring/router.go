package recurring

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskflow/internal/httpserver"
	"taskflow/pkg/mq"
)

// NewRouter builds the HTTP surface of the recurring service. The task event
// endpoint always answers 200; the body status tells the delivery layer
// whether to redeliver.
func NewRouter(h *Handler, log *zap.Logger, consumer *mq.Consumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpserver.Trace())
	r.Use(httpserver.RequestLogger(log))

	httpserver.RegisterProbes(r, nil, consumer)

	r.POST("/api/events/task", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(200, Response{Status: StatusFailed, Error: err.Error()})
			return
		}

		token := BearerToken(c.GetHeader("Authorization"))
		resp := h.Process(c.Request.Context(), body, token)
		c.JSON(200, resp)
	})

	return r
}
