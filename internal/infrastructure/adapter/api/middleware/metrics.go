package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per handled request
type RequestRecorder interface {
	HTTPRequest(method, endpoint string, status int, elapsed time.Duration)
}

// Metrics records request counts and latency by route template
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		recorder.HTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
