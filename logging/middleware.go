package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// Middleware logs one entry per request with its route, status and duration,
// tagging it with a request id that is echoed back to the client.
func Middleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"route":      route,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Errorf("Handler.%v.Error", route)
			return
		}
		entry.Infof("Handler.%v.Complete", route)
	}
}

// FromContext returns a logger carrying the request id of c.
func FromContext(c *gin.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id, ok := c.Get(requestIDKey); ok {
		return log.WithField("request_id", id)
	}
	return log
}
