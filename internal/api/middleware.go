package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	traceIDKey    = "trace_id"
	traceIDHeader = "X-Trace-ID"
)

// traceID tags every request with a trace id, reusing the caller's when present.
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(traceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceIDKey, id)
		c.Header(traceIDHeader, id)
		c.Next()
	}
}

func traceIDOf(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// requestLogger logs each request once it completes.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("trace_id", traceIDOf(c)),
		)
	}
}

// recovery turns a handler panic into a 500.
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("trace_id", traceIDOf(c)),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": codeInternal})
			}
		}()
		c.Next()
	}
}

// rateLimit rejects requests once the shared token bucket is empty.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
