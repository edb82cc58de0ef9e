package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Events handles GET /api/events, streaming every bus envelope as a server-sent
// event named after the envelope type.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "events_unavailable"})
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-sub.Events():
			if !ok {
				return
			}
			c.SSEvent(env.Type, env)
			c.Writer.Flush()
		case <-ticker.C:
			_, _ = c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
