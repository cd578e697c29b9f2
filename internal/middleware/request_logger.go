package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/internal/tracing"
)

// RequestLogger logs each request with zap and echoes the client's X-Request-ID,
// minting one when absent
func RequestLogger() gin.HandlerFunc {
	logger := zap.L().With(zap.String("component", "http"))

	return func(c *gin.Context) {
		requestID := c.GetHeader(tracing.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(tracing.RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("Request failed", fields...)
		case status >= 400:
			logger.Info("Request rejected", fields...)
		default:
			logger.Debug("Request served", fields...)
		}
	}
}
