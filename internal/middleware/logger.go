package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dronewerx/internal/pkg/response"
)

// ErrorLogger logs errors attached to the request context and recovers from panics.
func ErrorLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				requestFields(c, log, start).
					WithField("stack", string(debug.Stack())).
					WithError(err).
					Error("request panic")

				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
				}
				c.Abort()
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					requestFields(c, log, start).Error("request failed without error detail")
				}
				return
			}

			for _, err := range c.Errors {
				entry := requestFields(c, log, start).WithError(err.Err)
				if err.Meta != nil {
					entry = entry.WithField("meta", err.Meta)
				}
				if c.Writer.Status() >= http.StatusInternalServerError {
					entry.Error("request error")
				} else {
					entry.Warn("request error")
				}
			}
		}()

		c.Next()
	}
}

// AccessLogger writes one entry per request, leveled by response status.
func AccessLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"latency":    time.Since(start),
			"length":     c.Writer.Size(),
			"request_id": RequestIDFrom(c),
		})

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("HTTP Request")
		case status >= 400:
			entry.Warn("HTTP Request")
		default:
			entry.Info("HTTP Request")
		}
	}
}

func requestFields(c *gin.Context, log logrus.FieldLogger, start time.Time) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"status":     c.Writer.Status(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"query":      c.Request.URL.RawQuery,
		"client_ip":  c.ClientIP(),
		"request_id": RequestIDFrom(c),
		"latency":    time.Since(start),
	})
}
