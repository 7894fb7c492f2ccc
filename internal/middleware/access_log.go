package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/portfolio/pkg/log"
)

// AccessLog logs one structured entry per request
func AccessLog(logger log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Component("middleware.access_log")
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := log.RequestFields(log.RequestIDFromContext(c.Request.Context()), c.Request.Method, c.Request.URL.Path)
		fields = append(fields, log.ResponseFields(status, int64(c.Writer.Size()), latency)...)
		fields = append(fields,
			log.String(log.FieldRoute, routeOf(c)),
			log.String(log.FieldClientIP, c.ClientIP()),
			log.String(log.FieldUserAgent, c.Request.UserAgent()),
			log.Int64(log.FieldRequestSize, c.Request.ContentLength),
		)

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request completed", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
	}
}

// routeOf returns the matched route template, or a fixed label for
// unmatched paths to keep label cardinality bounded
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
