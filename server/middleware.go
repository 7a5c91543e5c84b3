package server

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/Desarso/docassist/metrics"
)

// requestLogger logs every request through the package logger and counts
// it by route.
func requestLogger(l *log.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}

		keyvals := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			keyvals = append(keyvals, "err", c.Errors.String())
		}
		switch {
		case status >= 500:
			l.Error("request", keyvals...)
		case status >= 400:
			l.Warn("request", keyvals...)
		default:
			l.Debug("request", keyvals...)
		}
	}
}
